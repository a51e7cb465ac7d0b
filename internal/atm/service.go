// internal/atm/service.go
package atm

import (
	"context"

	"cashpoint/internal/bank"
	"cashpoint/internal/cardreader"
)

// Controller is the session state machine. A controller models exactly one
// in-progress customer session; callers must serialize operations on a given
// instance.
type Controller interface {
	// State returns the controller's current position in the workflow.
	State() State

	// InsertCard starts a session. Permitted only from IDLE; any failure
	// rejects the card and resets to IDLE.
	InsertCard(ctx context.Context, cardNumber string) (*cardreader.Card, error)

	// EnterPIN authenticates the held card. A wrong PIN ends the session.
	EnterPIN(ctx context.Context, pin string) error

	// Accounts lists the accounts linked to the authenticated card.
	Accounts(ctx context.Context) ([]*bank.Account, error)

	// SelectAccount picks the account for subsequent transactions. The
	// account must exist and belong to the authenticated card.
	SelectAccount(ctx context.Context, accountNumber string) (*bank.Account, error)

	// Balance fetches a fresh balance from the ledger.
	Balance(ctx context.Context) (int64, error)

	// Deposit credits the selected account and logs the transaction.
	Deposit(ctx context.Context, amount int64) (*Transaction, error)

	// Withdraw debits the selected account and dispenses cash, in that
	// order, and logs the transaction.
	Withdraw(ctx context.Context, amount int64) (*Transaction, error)

	// Transactions returns a copy of this session's transaction log, in
	// completion order.
	Transactions() []Transaction

	// EjectCard ends the session from any state. Idempotent; never fails.
	EjectCard(ctx context.Context) error
}
