package bank

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to a PostgreSQL database for testing and skips the
// test if the connection cannot be established.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	pgUser := os.Getenv("PGUSER")
	pgPassword := os.Getenv("PGPASSWORD")
	pgHost := os.Getenv("PGHOST")
	pgPort := os.Getenv("PGPORT")
	pgDB := os.Getenv("PGDATABASE")

	if pgUser == "" {
		pgUser = "user"
	}
	if pgPassword == "" {
		pgPassword = "password"
	}
	if pgHost == "" {
		pgHost = "localhost"
	}
	if pgPort == "" {
		pgPort = "5432"
	}
	if pgDB == "" {
		pgDB = "testdb"
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pgHost, pgPort, pgUser, pgPassword, pgDB)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("skipping postgres ledger tests: could not connect: %v", err)
	}

	return db
}

func setupPostgresLedger(t *testing.T) *PostgresLedger {
	t.Helper()
	ctx := context.Background()

	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	ledger := NewPostgresLedger(db)
	require.NoError(t, ledger.EnsureSchema(ctx))

	_, err := db.Exec("TRUNCATE TABLE card_accounts, accounts, cards CASCADE")
	require.NoError(t, err)

	require.NoError(t, ledger.CreateCard(ctx, "1234567890123456", "1234", true))
	require.NoError(t, ledger.CreateCard(ctx, "3456789012345678", "9999", false))

	checking, err := NewAccount("1001", AccountChecking, 1000, "Primary Checking")
	require.NoError(t, err)
	savings, err := NewAccount("1002", AccountSavings, 5000, "Primary Savings")
	require.NoError(t, err)
	require.NoError(t, ledger.CreateAccount(ctx, checking, "1234567890123456"))
	require.NoError(t, ledger.CreateAccount(ctx, savings, "1234567890123456"))

	return ledger
}

func TestPostgresLedgerCardValidation(t *testing.T) {
	ledger := setupPostgresLedger(t)
	ctx := context.Background()

	ok, err := ledger.ValidateCard(ctx, "1234567890123456")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.ValidateCard(ctx, "3456789012345678")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ledger.ValidateCard(ctx, "0000000000000000")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ledger.VerifyPIN(ctx, "1234567890123456", "1234")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.VerifyPIN(ctx, "1234567890123456", "4321")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ledger.VerifyPIN(ctx, "3456789012345678", "9999")
	require.NoError(t, err)
	assert.False(t, ok, "inactive card must not verify")
}

func TestPostgresLedgerAccounts(t *testing.T) {
	ledger := setupPostgresLedger(t)
	ctx := context.Background()

	accounts, err := ledger.Accounts(ctx, "1234567890123456")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "1001", accounts[0].AccountNumber, "accounts keep link order")
	assert.Equal(t, "1002", accounts[1].AccountNumber)

	account, err := ledger.Account(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), account.Balance)
	assert.Equal(t, AccountChecking, account.AccountType)

	_, err = ledger.Account(ctx, "8888")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestPostgresLedgerMoneyMovement(t *testing.T) {
	ledger := setupPostgresLedger(t)
	ctx := context.Background()

	balance, err := ledger.Deposit(ctx, "1001", 500)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), balance)

	balance, err = ledger.Withdraw(ctx, "1001", 200)
	require.NoError(t, err)
	assert.Equal(t, int64(1300), balance)

	_, err = ledger.Withdraw(ctx, "1001", 99999)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	balance, err = ledger.Balance(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, int64(1300), balance)

	_, err = ledger.Deposit(ctx, "8888", 100)
	require.ErrorIs(t, err, ErrAccountNotFound)
	_, err = ledger.Withdraw(ctx, "8888", 100)
	require.ErrorIs(t, err, ErrAccountNotFound)
}
