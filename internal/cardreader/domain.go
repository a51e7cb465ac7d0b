// internal/cardreader/domain.go
package cardreader

import (
	"fmt"
	"strings"
	"time"
)

// CardType classifies the inserted card.
type CardType string

const (
	CardDebit  CardType = "DEBIT"
	CardCredit CardType = "CREDIT"
)

const minCardNumberLen = 12

// Card represents a bank card as read from the device. The controller holds
// a Card only for the duration of one session.
type Card struct {
	CardNumber string    `json:"card_number"`
	HolderName string    `json:"holder_name"`
	ExpiryDate time.Time `json:"expiry_date"`
	CardType   CardType  `json:"card_type"`
	IsActive   bool      `json:"is_active"`
}

// NewCard validates the card data. A card whose expiry has already passed is
// constructed inactive and is never valid for a new session.
func NewCard(number, holder string, expiry time.Time, cardType CardType) (*Card, error) {
	if len(number) < minCardNumberLen {
		return nil, fmt.Errorf("card number must be at least %d characters", minCardNumberLen)
	}
	if strings.TrimSpace(holder) == "" {
		return nil, fmt.Errorf("cardholder name is required")
	}

	return &Card{
		CardNumber: number,
		HolderName: holder,
		ExpiryDate: expiry,
		CardType:   cardType,
		IsActive:   expiry.After(time.Now()),
	}, nil
}

// Expired reports whether the card's expiry date has passed.
func (c *Card) Expired() bool {
	return time.Now().After(c.ExpiryDate)
}

// MaskedNumber returns the card number with all but the last four digits
// replaced, for logs and traces.
func (c *Card) MaskedNumber() string {
	if len(c.CardNumber) <= 4 {
		return strings.Repeat("*", len(c.CardNumber))
	}
	return strings.Repeat("*", len(c.CardNumber)-4) + c.CardNumber[len(c.CardNumber)-4:]
}
