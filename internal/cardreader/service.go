// internal/cardreader/service.go
package cardreader

import (
	"context"
	"errors"
)

// ErrInvalidCard is reported when a card cannot be read, is unrecognized, or
// is expired.
var ErrInvalidCard = errors.New("card cannot be read")

// Reader is the contract for the card-reading device. Implementations are
// swappable (real hardware vs the simulated device used in tests and demos).
type Reader interface {
	// ReadCard reads the inserted card's data. Fails with ErrInvalidCard for
	// unrecognized or expired cards.
	ReadCard(ctx context.Context, cardNumber string) (*Card, error)

	// EjectCard returns the card to the customer. It always succeeds on a
	// healthy device; a non-nil error indicates a hardware fault.
	EjectCard(ctx context.Context) error

	// CardInserted reports whether a card is currently in the device.
	CardInserted() bool
}
