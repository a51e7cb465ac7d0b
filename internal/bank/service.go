// internal/bank/service.go
package bank

import (
	"context"
	"errors"
)

var (
	ErrAccountNotFound   = errors.New("account does not exist")
	ErrInsufficientFunds = errors.New("balance below requested amount")
)

// Ledger is the contract for the bank-side collaborator. The ledger owns all
// persistent card and account state; callers request mutations and react to
// the reported results. Implementations are swappable (in-memory, postgres,
// real banking rails).
type Ledger interface {
	// ValidateCard reports whether the card is known and active.
	ValidateCard(ctx context.Context, cardNumber string) (bool, error)

	// VerifyPIN reports whether the PIN matches the card's stored digest.
	// An unknown or inactive card verifies false, not as an error.
	VerifyPIN(ctx context.Context, cardNumber, pin string) (bool, error)

	// Accounts returns the accounts linked to the card, in a stable order.
	Accounts(ctx context.Context, cardNumber string) ([]*Account, error)

	// Account returns the account with the given number, or
	// ErrAccountNotFound.
	Account(ctx context.Context, accountNumber string) (*Account, error)

	// Balance returns the current balance in minor units.
	Balance(ctx context.Context, accountNumber string) (int64, error)

	// Deposit credits the account and returns the new balance.
	Deposit(ctx context.Context, accountNumber string, amount int64) (int64, error)

	// Withdraw debits the account and returns the new balance. Fails with
	// ErrInsufficientFunds when the balance does not cover the amount.
	Withdraw(ctx context.Context, accountNumber string, amount int64) (int64, error)
}
