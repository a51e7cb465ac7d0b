// internal/bank/domain.go
package bank

import (
	"fmt"
	"strings"
)

// AccountType classifies an account for limit and overdraft policy.
type AccountType string

const (
	AccountChecking AccountType = "CHECKING"
	AccountSavings  AccountType = "SAVINGS"
	AccountCredit   AccountType = "CREDIT"
)

// Default daily withdrawal limits per account type, in minor units.
const (
	checkingDailyLimit = 1000
	savingsDailyLimit  = 500
	creditDailyLimit   = 300
)

// Account represents a bank account reachable from an ATM session.
// Balance is in minor units. The ledger owns the authoritative balance;
// any Account handed out by a Ledger is a display snapshot, never a basis
// for a transaction decision.
type Account struct {
	AccountNumber        string      `json:"account_number"`
	AccountType          AccountType `json:"account_type"`
	Balance              int64       `json:"balance"`
	AccountName          string      `json:"account_name"`
	IsActive             bool        `json:"is_active"`
	DailyWithdrawalLimit int64       `json:"daily_withdrawal_limit"`
}

// NewAccount validates the required fields and applies the per-type default
// withdrawal limit when none is given.
func NewAccount(number string, accountType AccountType, balance int64, name string) (*Account, error) {
	if strings.TrimSpace(number) == "" {
		return nil, fmt.Errorf("account number is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("account name is required")
	}

	return &Account{
		AccountNumber:        number,
		AccountType:          accountType,
		Balance:              balance,
		AccountName:          name,
		IsActive:             true,
		DailyWithdrawalLimit: DefaultWithdrawalLimit(accountType),
	}, nil
}

// DefaultWithdrawalLimit returns the daily withdrawal limit applied to new
// accounts of the given type.
func DefaultWithdrawalLimit(accountType AccountType) int64 {
	switch accountType {
	case AccountChecking:
		return checkingDailyLimit
	case AccountSavings:
		return savingsDailyLimit
	default:
		return creditDailyLimit
	}
}

// CanWithdraw reports whether this snapshot permits a withdrawal of amount.
// Credit accounts may go negative, so only the daily limit applies to them.
// The withdraw flow does not consult this; the limit is carried as data until
// a limit policy is wired in explicitly.
func (a *Account) CanWithdraw(amount int64) bool {
	if !a.IsActive {
		return false
	}
	if amount <= 0 {
		return false
	}
	if a.DailyWithdrawalLimit > 0 && amount > a.DailyWithdrawalLimit {
		return false
	}
	if a.AccountType == AccountCredit {
		return true
	}
	return a.Balance >= amount
}

// MaskedNumber returns the account number with all but the last four digits
// replaced, for logs and traces.
func (a *Account) MaskedNumber() string {
	return MaskNumber(a.AccountNumber)
}

// MaskNumber masks any card or account number down to its last four digits.
func MaskNumber(number string) string {
	if len(number) <= 4 {
		return strings.Repeat("*", len(number))
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}
