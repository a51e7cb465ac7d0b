// internal/cardreader/implementation.go
package cardreader

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type cardProfile struct {
	holderName string
	expiryDate time.Time
	cardType   CardType
}

// SimulatedReader implements Reader without hardware. It keeps a directory of
// known cards and tracks whether a card is currently in the device.
type SimulatedReader struct {
	mu       sync.Mutex
	cards    map[string]cardProfile
	inserted bool
	current  *Card
}

// NewSimulatedReader creates a reader with an empty card directory.
func NewSimulatedReader() *SimulatedReader {
	return &SimulatedReader{cards: make(map[string]cardProfile)}
}

// AddCard registers a card the device will recognize.
func (r *SimulatedReader) AddCard(number, holder string, expiry time.Time, cardType CardType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[number] = cardProfile{holderName: holder, expiryDate: expiry, cardType: cardType}
}

func (r *SimulatedReader) ReadCard(_ context.Context, cardNumber string) (*Card, error) {
	if cardNumber == "" {
		return nil, fmt.Errorf("%w: no card number provided", ErrInvalidCard)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.cards[cardNumber]
	if !ok {
		return nil, fmt.Errorf("%w: card not recognized", ErrInvalidCard)
	}

	card, err := NewCard(cardNumber, profile.holderName, profile.expiryDate, profile.cardType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCard, err)
	}
	if card.Expired() {
		return nil, fmt.Errorf("%w: card is expired", ErrInvalidCard)
	}

	r.inserted = true
	r.current = card
	return card, nil
}

func (r *SimulatedReader) EjectCard(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserted = false
	r.current = nil
	return nil
}

func (r *SimulatedReader) CardInserted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inserted
}
