// internal/dispenser/implementation.go
package dispenser

import (
	"context"
	"fmt"
	"sync"
)

// Inventory is an in-memory Dispenser whose cash count is guarded by a single
// mutex, so a dispense's availability check and decrement are atomic.
// Amounts are abstract units; denominations are not modeled.
type Inventory struct {
	mu        sync.Mutex
	available int64
}

// NewInventory creates an inventory holding the given initial amount.
func NewInventory(initial int64) *Inventory {
	return &Inventory{available: initial}
}

func (i *Inventory) HasSufficientCash(amount int64) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return amount > 0 && amount <= i.available
}

func (i *Inventory) DispenseCash(_ context.Context, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("dispense amount must be positive")
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if amount > i.available {
		return ErrInsufficientCash
	}
	i.available -= amount
	return nil
}

func (i *Inventory) AvailableCash() int64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.available
}

// Refill adds cash to the inventory. Maintenance operation; never part of the
// session workflow.
func (i *Inventory) Refill(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("refill amount must be positive")
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.available += amount
	return nil
}
