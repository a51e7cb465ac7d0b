// internal/dispenser/service.go
package dispenser

import (
	"context"
	"errors"
)

// ErrInsufficientCash is reported when a dispense request exceeds the
// physically available inventory.
var ErrInsufficientCash = errors.New("cash inventory below requested amount")

// Dispenser is the contract for the cash-dispensing device. The device owns
// the authoritative cash inventory; the session controller only requests
// dispenses and reacts to the result.
type Dispenser interface {
	// HasSufficientCash reports whether the inventory covers amount.
	HasSufficientCash(amount int64) bool

	// DispenseCash pays out amount. Fails with ErrInsufficientCash when the
	// inventory does not cover it.
	DispenseCash(ctx context.Context, amount int64) error

	// AvailableCash returns the current inventory.
	AvailableCash() int64
}
