// internal/bank/memory.go
package bank

import (
	"context"
	"fmt"
	"sync"
)

type cardRecord struct {
	pinDigest string
	pinSalt   string
	active    bool
	accounts  []string
}

// MemoryLedger is an in-memory Ledger implementation. It backs unit tests and
// standalone demo deployments; a single mutex serializes every mutation so a
// balance update and its visibility are atomic. Accounts are returned as
// copies so callers cannot reach the ledger's internal state.
type MemoryLedger struct {
	mu       sync.Mutex
	cards    map[string]*cardRecord
	accounts map[string]*Account
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		cards:    make(map[string]*cardRecord),
		accounts: make(map[string]*Account),
	}
}

// AddCard registers a card with its PIN (stored as an Argon2id digest) and
// the account numbers linked to it, in the order they should be listed.
func (l *MemoryLedger) AddCard(cardNumber, pin string, active bool, accountNumbers ...string) error {
	digest, salt, err := hashPIN(pin)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.cards[cardNumber] = &cardRecord{
		pinDigest: digest,
		pinSalt:   salt,
		active:    active,
		accounts:  append([]string(nil), accountNumbers...),
	}
	return nil
}

// AddAccount registers an account. The stored value is a copy of a.
func (l *MemoryLedger) AddAccount(a *Account) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *a
	l.accounts[a.AccountNumber] = &cp
}

func (l *MemoryLedger) ValidateCard(_ context.Context, cardNumber string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.cards[cardNumber]
	return ok && rec.active, nil
}

func (l *MemoryLedger) VerifyPIN(_ context.Context, cardNumber, pin string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.cards[cardNumber]
	if !ok || !rec.active {
		return false, nil
	}
	return verifyPIN(pin, rec.pinSalt, rec.pinDigest)
}

func (l *MemoryLedger) Accounts(_ context.Context, cardNumber string) ([]*Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.cards[cardNumber]
	if !ok {
		return nil, nil
	}

	accounts := make([]*Account, 0, len(rec.accounts))
	for _, number := range rec.accounts {
		if a, ok := l.accounts[number]; ok {
			cp := *a
			accounts = append(accounts, &cp)
		}
	}
	return accounts, nil
}

func (l *MemoryLedger) Account(_ context.Context, accountNumber string) (*Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[accountNumber]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", MaskNumber(accountNumber), ErrAccountNotFound)
	}
	cp := *a
	return &cp, nil
}

func (l *MemoryLedger) Balance(_ context.Context, accountNumber string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[accountNumber]
	if !ok {
		return 0, fmt.Errorf("account %s: %w", MaskNumber(accountNumber), ErrAccountNotFound)
	}
	return a.Balance, nil
}

func (l *MemoryLedger) Deposit(_ context.Context, accountNumber string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("deposit amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[accountNumber]
	if !ok {
		return 0, fmt.Errorf("account %s: %w", MaskNumber(accountNumber), ErrAccountNotFound)
	}
	a.Balance += amount
	return a.Balance, nil
}

func (l *MemoryLedger) Withdraw(_ context.Context, accountNumber string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("withdrawal amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[accountNumber]
	if !ok {
		return 0, fmt.Errorf("account %s: %w", MaskNumber(accountNumber), ErrAccountNotFound)
	}
	if a.Balance < amount {
		return 0, ErrInsufficientFunds
	}
	a.Balance -= amount
	return a.Balance, nil
}
