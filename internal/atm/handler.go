// internal/atm/handler.go
package atm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// Handler exposes the controller over HTTP. The controller is not safe for
// concurrent invocation, so the handler serializes all operations behind a
// mutex; one handler fronts one physical machine's single session.
type Handler struct {
	mu         sync.Mutex
	controller Controller
	pinLimiter *rate.Limiter
}

func NewHandler(controller Controller) *Handler {
	return &Handler{
		controller: controller,
		// PIN entry is human-paced; throttle anything faster.
		pinLimiter: rate.NewLimiter(rate.Every(2*time.Second), 3),
	}
}

// Routes mounts the session endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleState)
	r.Post("/card", h.HandleInsertCard)
	r.Post("/pin", h.HandleEnterPIN)
	r.Get("/accounts", h.HandleAccounts)
	r.Post("/account", h.HandleSelectAccount)
	r.Get("/balance", h.HandleBalance)
	r.Post("/deposit", h.HandleDeposit)
	r.Post("/withdraw", h.HandleWithdraw)
	r.Get("/transactions", h.HandleTransactions)
	r.Post("/eject", h.HandleEject)
	return r
}

func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	state := h.controller.State()
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"state": string(state)})
}

func (h *Handler) HandleInsertCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardNumber string `json:"card_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	card, err := h.controller.InsertCard(r.Context(), req.CardNumber)
	h.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, card)
}

func (h *Handler) HandleEnterPIN(w http.ResponseWriter, r *http.Request) {
	if !h.pinLimiter.Allow() {
		http.Error(w, "too many pin attempts", http.StatusTooManyRequests)
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	err := h.controller.EnterPIN(r.Context(), req.PIN)
	state := h.controller.State()
	h.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"state": string(state)})
}

func (h *Handler) HandleAccounts(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	accounts, err := h.controller.Accounts(r.Context())
	h.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) HandleSelectAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountNumber string `json:"account_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	account, err := h.controller.SelectAccount(r.Context(), req.AccountNumber)
	h.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	balance, err := h.controller.Balance(r.Context())
	h.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	h.handleAmountOp(w, r, h.controller.Deposit)
}

func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.handleAmountOp(w, r, h.controller.Withdraw)
}

func (h *Handler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	transactions := h.controller.Transactions()
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, transactions)
}

func (h *Handler) HandleEject(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	err := h.controller.EjectCard(r.Context())
	h.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"state": string(StateIdle)})
}

func (h *Handler) handleAmountOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, amount int64) (*Transaction, error)) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	tx, err := op(r.Context(), req.Amount)
	h.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the failure taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidOperation):
		status = http.StatusConflict
	case errors.Is(err, ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, ErrInvalidCard), errors.Is(err, ErrInvalidPin):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrInsufficientCash):
		status = http.StatusUnprocessableEntity
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
