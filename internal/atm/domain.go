// internal/atm/domain.go
package atm

import (
	"time"

	"github.com/google/uuid"

	"cashpoint/internal/bank"
	"cashpoint/internal/cardreader"
)

// State is the session controller's position in the workflow. Progression is
// strictly linear; any state can be forced back to StateIdle by a session
// reset.
type State string

const (
	StateIdle            State = "IDLE"
	StateCardInserted    State = "CARD_INSERTED"
	StatePINVerified     State = "PIN_VERIFIED"
	StateAccountSelected State = "ACCOUNT_SELECTED"
)

// TransactionType classifies a logged transaction.
type TransactionType string

const (
	TransactionDeposit        TransactionType = "DEPOSIT"
	TransactionWithdrawal     TransactionType = "WITHDRAWAL"
	TransactionBalanceInquiry TransactionType = "BALANCE_INQUIRY"
)

// Transaction is an immutable record of a collaborator-confirmed operation.
// BalanceAfter is the post-operation balance as reported by the ledger.
type Transaction struct {
	ID            uuid.UUID       `json:"transaction_id"`
	Type          TransactionType `json:"transaction_type"`
	Amount        int64           `json:"amount"`
	AccountNumber string          `json:"account_number"`
	BalanceAfter  int64           `json:"balance_after"`
	Timestamp     time.Time       `json:"timestamp"`
}

func newTransaction(txType TransactionType, amount int64, accountNumber string, balanceAfter int64) Transaction {
	return Transaction{
		ID:            uuid.New(),
		Type:          txType,
		Amount:        amount,
		AccountNumber: accountNumber,
		BalanceAfter:  balanceAfter,
		Timestamp:     time.Now().UTC(),
	}
}

// session is all session-scoped mutable state in one value. A reset replaces
// the whole value, so no field can survive a reset by accident.
type session struct {
	state   State
	card    *cardreader.Card
	account *bank.Account
	log     []Transaction
}

func newSession() session {
	return session{state: StateIdle}
}
