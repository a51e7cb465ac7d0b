// internal/bank/postgres.go
package bank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresLedger is a Ledger backed by a postgres database. Balance
// mutations run inside transactions; the schema's balance check constraint
// is the last line of defense against a concurrent debit racing past the
// in-transaction balance check.
type PostgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger creates a ledger over an open database handle.
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureSchema creates the ledger tables if they do not exist. One statement
// per Exec; pq rejects multi-statement prepared queries.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS cards (
			card_number TEXT PRIMARY KEY,
			pin_digest  TEXT NOT NULL,
			pin_salt    TEXT NOT NULL,
			active      BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			account_number         TEXT PRIMARY KEY,
			account_type           TEXT NOT NULL,
			balance                BIGINT NOT NULL,
			account_name           TEXT NOT NULL,
			active                 BOOLEAN NOT NULL DEFAULT TRUE,
			daily_withdrawal_limit BIGINT NOT NULL,
			CONSTRAINT accounts_balance_covered CHECK (account_type = 'CREDIT' OR balance >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS card_accounts (
			card_number    TEXT NOT NULL REFERENCES cards (card_number),
			account_number TEXT NOT NULL REFERENCES accounts (account_number),
			position       INT  NOT NULL,
			PRIMARY KEY (card_number, account_number)
		)`,
	}

	for _, stmt := range statements {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// CreateCard registers a card with a hashed PIN. Used by provisioning and
// tests; the session workflow never creates cards.
func (l *PostgresLedger) CreateCard(ctx context.Context, cardNumber, pin string, active bool) error {
	digest, salt, err := hashPIN(pin)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO cards (card_number, pin_digest, pin_salt, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (card_number) DO UPDATE
		SET pin_digest = EXCLUDED.pin_digest, pin_salt = EXCLUDED.pin_salt, active = EXCLUDED.active
	`, cardNumber, digest, salt, active)
	if err != nil {
		return fmt.Errorf("create card: %w", err)
	}
	return nil
}

// CreateAccount registers an account and links it to the owning card.
func (l *PostgresLedger) CreateAccount(ctx context.Context, a *Account, cardNumber string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (account_number, account_type, balance, account_name, active, daily_withdrawal_limit)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_number) DO UPDATE
		SET balance = EXCLUDED.balance, active = EXCLUDED.active
	`, a.AccountNumber, a.AccountType, a.Balance, a.AccountName, a.IsActive, a.DailyWithdrawalLimit)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO card_accounts (card_number, account_number, position)
		VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM card_accounts WHERE card_number = $1))
		ON CONFLICT (card_number, account_number) DO NOTHING
	`, cardNumber, a.AccountNumber)
	if err != nil {
		return fmt.Errorf("link account to card: %w", err)
	}

	return tx.Commit()
}

func (l *PostgresLedger) ValidateCard(ctx context.Context, cardNumber string) (bool, error) {
	var active bool
	err := l.db.QueryRowContext(ctx, `
		SELECT active FROM cards WHERE card_number = $1
	`, cardNumber).Scan(&active)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("validate card: %w", err)
	}
	return active, nil
}

func (l *PostgresLedger) VerifyPIN(ctx context.Context, cardNumber, pin string) (bool, error) {
	var digest, salt string
	err := l.db.QueryRowContext(ctx, `
		SELECT pin_digest, pin_salt FROM cards WHERE card_number = $1 AND active
	`, cardNumber).Scan(&digest, &salt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verify pin: %w", err)
	}
	return verifyPIN(pin, salt, digest)
}

func (l *PostgresLedger) Accounts(ctx context.Context, cardNumber string) ([]*Account, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT a.account_number, a.account_type, a.balance, a.account_name, a.active, a.daily_withdrawal_limit
		FROM accounts a
		JOIN card_accounts ca ON ca.account_number = a.account_number
		WHERE ca.card_number = $1
		ORDER BY ca.position
	`, cardNumber)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		a := &Account{}
		if err := rows.Scan(&a.AccountNumber, &a.AccountType, &a.Balance, &a.AccountName, &a.IsActive, &a.DailyWithdrawalLimit); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (l *PostgresLedger) Account(ctx context.Context, accountNumber string) (*Account, error) {
	a := &Account{}
	err := l.db.QueryRowContext(ctx, `
		SELECT account_number, account_type, balance, account_name, active, daily_withdrawal_limit
		FROM accounts
		WHERE account_number = $1
	`, accountNumber).Scan(&a.AccountNumber, &a.AccountType, &a.Balance, &a.AccountName, &a.IsActive, &a.DailyWithdrawalLimit)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account %s: %w", MaskNumber(accountNumber), ErrAccountNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	return a, nil
}

func (l *PostgresLedger) Balance(ctx context.Context, accountNumber string) (int64, error) {
	var balance int64
	err := l.db.QueryRowContext(ctx, `
		SELECT balance FROM accounts WHERE account_number = $1
	`, accountNumber).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("account %s: %w", MaskNumber(accountNumber), ErrAccountNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return balance, nil
}

func (l *PostgresLedger) Deposit(ctx context.Context, accountNumber string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("deposit amount must be positive")
	}

	var balance int64
	err := l.db.QueryRowContext(ctx, `
		UPDATE accounts SET balance = balance + $2 WHERE account_number = $1
		RETURNING balance
	`, accountNumber, amount).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("account %s: %w", MaskNumber(accountNumber), ErrAccountNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("deposit: %w", err)
	}
	return balance, nil
}

func (l *PostgresLedger) Withdraw(ctx context.Context, accountNumber string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("withdrawal amount must be positive")
	}

	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRowContext(ctx, `
		SELECT balance FROM accounts WHERE account_number = $1 FOR UPDATE
	`, accountNumber).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("account %s: %w", MaskNumber(accountNumber), ErrAccountNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	if balance < amount {
		return 0, ErrInsufficientFunds
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE accounts SET balance = balance - $2 WHERE account_number = $1
		RETURNING balance
	`, accountNumber, amount).Scan(&balance)
	if err != nil {
		// The check constraint fires if another writer drained the account
		// between our read and this update.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23514" {
			return 0, ErrInsufficientFunds
		}
		return 0, fmt.Errorf("withdraw: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit withdraw: %w", err)
	}
	return balance, nil
}
