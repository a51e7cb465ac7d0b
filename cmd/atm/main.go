// cmd/atm/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"cashpoint/internal/atm"
	"cashpoint/internal/bank"
	"cashpoint/internal/cardreader"
	"cashpoint/internal/dispenser"
)

func main() {
	ctx := context.Background()

	if shutdown := setupTracing(ctx); shutdown != nil {
		defer shutdown()
	}

	ledger, err := setupLedger(ctx)
	if err != nil {
		log.Fatalf("Failed to set up ledger: %v", err)
	}

	reader := cardreader.NewSimulatedReader()
	if _, isMemory := ledger.(*bank.MemoryLedger); isMemory {
		seedDemoCards(reader)
	} else {
		seedReaderFromEnv(reader)
	}

	initialCash, err := strconv.ParseInt(getEnv("ATM_CASH_INVENTORY", "10000"), 10, 64)
	if err != nil {
		log.Fatalf("Invalid ATM_CASH_INVENTORY: %v", err)
	}
	inventory := dispenser.NewInventory(initialCash)

	controller := atm.NewController(ledger, reader, inventory)
	handler := atm.NewHandler(controller)
	maintenance := dispenser.NewHandler(inventory)

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Mount("/session", handler.Routes())
	router.Route("/maintenance", func(r chi.Router) {
		r.Get("/cash", maintenance.HandleAvailableCash)
		r.Post("/refill", maintenance.HandleRefill)
	})
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	port := getEnv("PORT", "8080")
	fmt.Printf("Starting ATM session service on port %s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, router))
}

// setupLedger picks the postgres ledger when DATABASE_URL is set, otherwise
// an in-memory ledger seeded with demo data.
func setupLedger(ctx context.Context) (bank.Ledger, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Printf("DATABASE_URL not set, using in-memory ledger with demo data")
		return seedDemoLedger()
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	ledger := bank.NewPostgresLedger(db)
	if err := ledger.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return ledger, nil
}

// seedDemoLedger loads the standard demo fixture: two live cards, one
// inactive card, three accounts.
func seedDemoLedger() (*bank.MemoryLedger, error) {
	ledger := bank.NewMemoryLedger()

	if err := ledger.AddCard("1234567890123456", "1234", true, "1001", "1002"); err != nil {
		return nil, err
	}
	if err := ledger.AddCard("2345678901234567", "5678", true, "2001"); err != nil {
		return nil, err
	}
	if err := ledger.AddCard("3456789012345678", "9999", false); err != nil {
		return nil, err
	}

	for _, seed := range []struct {
		number      string
		accountType bank.AccountType
		balance     int64
		name        string
	}{
		{"1001", bank.AccountChecking, 1000, "Primary Checking"},
		{"1002", bank.AccountSavings, 5000, "Primary Savings"},
		{"2001", bank.AccountChecking, 750, "Business Checking"},
	} {
		account, err := bank.NewAccount(seed.number, seed.accountType, seed.balance, seed.name)
		if err != nil {
			return nil, err
		}
		ledger.AddAccount(account)
	}

	return ledger, nil
}

func seedDemoCards(reader *cardreader.SimulatedReader) {
	reader.AddCard("1234567890123456", "John Doe", time.Now().AddDate(1, 0, 0), cardreader.CardDebit)
	reader.AddCard("2345678901234567", "Jane Smith", time.Now().AddDate(2, 0, 0), cardreader.CardCredit)
	reader.AddCard("3456789012345678", "Invalid User", time.Now().AddDate(0, -1, 0), cardreader.CardDebit)
}

// seedReaderFromEnv loads the reader's card directory from ATM_CARDS, a
// comma-separated list of number:holder:expiry(2006-01-02):type entries. The
// simulated reader stands in until a hardware adapter exists.
func seedReaderFromEnv(reader *cardreader.SimulatedReader) {
	raw := os.Getenv("ATM_CARDS")
	if raw == "" {
		return
	}

	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 4 {
			log.Printf("skipping malformed ATM_CARDS entry %q", entry)
			continue
		}
		expiry, err := time.Parse("2006-01-02", parts[2])
		if err != nil {
			log.Printf("skipping ATM_CARDS entry %q: %v", entry, err)
			continue
		}
		reader.AddCard(parts[0], parts[1], expiry, cardreader.CardType(parts[3]))
	}
}

// setupTracing installs an OTLP trace pipeline when an endpoint is
// configured; otherwise the default no-op provider stays in place.
func setupTracing(ctx context.Context) func() {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return nil
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		log.Printf("failed to create trace exporter, tracing disabled: %v", err)
		return nil
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Printf("trace provider shutdown: %v", err)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
