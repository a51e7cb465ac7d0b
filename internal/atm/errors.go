// internal/atm/errors.go
package atm

import "errors"

// The closed set of failure kinds surfaced by controller operations. Every
// public operation either returns a success value or fails with exactly one
// of these, discriminable with errors.Is.
var (
	// ErrInvalidCard: card unrecognized, inactive, or expired.
	ErrInvalidCard = errors.New("card is not valid for a session")

	// ErrInvalidPin: PIN mismatch. One wrong PIN ends the session; there is
	// no attempt counter.
	ErrInvalidPin = errors.New("incorrect pin")

	// ErrAccountNotFound: account number unknown, or known but not linked to
	// the authenticated card.
	ErrAccountNotFound = errors.New("account not found for this card")

	// ErrInsufficientFunds: ledger balance below the requested withdrawal.
	ErrInsufficientFunds = errors.New("insufficient funds in account")

	// ErrInsufficientCash: dispenser inventory below the requested
	// withdrawal. Checked before the ledger debit, so the account is never
	// debited for cash that cannot be dispensed.
	ErrInsufficientCash = errors.New("insufficient cash in dispenser")

	// ErrInvalidOperation: operation attempted from a state that does not
	// permit it. The caller is expected to correct its call sequence.
	ErrInvalidOperation = errors.New("operation not permitted in current state")

	// ErrInvalidAmount: non-positive amount, rejected before any
	// collaborator is contacted.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrDispenseFailed: the ledger debit succeeded but the physical
	// dispense did not. Funds are debited with no cash issued; this is fatal
	// and non-retryable, and it is never reported as ErrInsufficientCash.
	ErrDispenseFailed = errors.New("cash dispense failed after account debit")
)

// sessionResetErrors declares which failure kinds abort the session. Reset
// behavior is a property of the error kind, not of the call site that
// happens to observe it.
var sessionResetErrors = []error{
	ErrInvalidCard,
	ErrInvalidPin,
}

func resetsSession(err error) bool {
	for _, kind := range sessionResetErrors {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
