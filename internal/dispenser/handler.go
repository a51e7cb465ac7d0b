// internal/dispenser/handler.go
package dispenser

import (
	"encoding/json"
	"net/http"
)

// Handler exposes the maintenance surface of an Inventory. It sits outside
// the session workflow.
type Handler struct {
	inventory *Inventory
}

func NewHandler(inventory *Inventory) *Handler {
	return &Handler{inventory: inventory}
}

func (h *Handler) HandleAvailableCash(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"available_cash": h.inventory.AvailableCash()})
}

func (h *Handler) HandleRefill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.inventory.Refill(req.Amount); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"available_cash": h.inventory.AvailableCash()})
}
