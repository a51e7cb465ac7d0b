// internal/atm/implementation.go
package atm

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"cashpoint/internal/bank"
	"cashpoint/internal/cardreader"
	"cashpoint/internal/dispenser"
)

// controller implements the Controller interface.
type controller struct {
	ledger    bank.Ledger
	reader    cardreader.Reader
	dispenser dispenser.Dispenser

	sess session

	tracer    trace.Tracer
	txCounter metric.Int64Counter
}

// NewController creates a session controller in the IDLE state, wired to its
// three collaborators.
func NewController(ledger bank.Ledger, reader cardreader.Reader, disp dispenser.Dispenser) Controller {
	txCounter, err := otel.Meter("cashpoint/atm").Int64Counter(
		"atm.transactions",
		metric.WithDescription("Completed deposit and withdrawal transactions"),
	)
	if err != nil {
		log.Printf("failed to create transaction counter: %v", err)
	}

	return &controller{
		ledger:    ledger,
		reader:    reader,
		dispenser: disp,
		sess:      newSession(),
		tracer:    otel.Tracer("cashpoint/atm"),
		txCounter: txCounter,
	}
}

func (c *controller) State() State {
	return c.sess.state
}

// InsertCard validates the card with the bank, then reads it from the
// device. Beyond the state precondition, any failure rejects the card: the
// session resets so the machine is immediately ready for the next customer.
func (c *controller) InsertCard(ctx context.Context, cardNumber string) (*cardreader.Card, error) {
	ctx, span := c.tracer.Start(ctx, "atm.insert_card",
		trace.WithAttributes(
			attribute.String("atm.state", string(c.sess.state)),
			attribute.String("card.number", bank.MaskNumber(cardNumber)),
		),
	)
	defer span.End()

	if c.sess.state != StateIdle {
		return nil, fmt.Errorf("%w: a session is already in progress", ErrInvalidOperation)
	}

	valid, err := c.ledger.ValidateCard(ctx, cardNumber)
	if err != nil {
		c.reset()
		return nil, fmt.Errorf("validate card: %w", err)
	}
	if !valid {
		c.reset()
		return nil, ErrInvalidCard
	}

	card, err := c.reader.ReadCard(ctx, cardNumber)
	if err != nil {
		c.reset()
		if errors.Is(err, cardreader.ErrInvalidCard) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCard, err)
		}
		return nil, fmt.Errorf("read card: %w", err)
	}

	c.sess.card = card
	c.sess.state = StateCardInserted
	return card, nil
}

// EnterPIN verifies the PIN with the bank. A mismatch ends the session; a
// bank transport failure leaves the customer in CARD_INSERTED to try again.
func (c *controller) EnterPIN(ctx context.Context, pin string) error {
	ctx, span := c.tracer.Start(ctx, "atm.enter_pin",
		trace.WithAttributes(attribute.String("atm.state", string(c.sess.state))),
	)
	defer span.End()

	if c.sess.state != StateCardInserted {
		return fmt.Errorf("%w: no card inserted or pin already verified", ErrInvalidOperation)
	}

	ok, err := c.ledger.VerifyPIN(ctx, c.sess.card.CardNumber, pin)
	if err != nil {
		return fmt.Errorf("verify pin: %w", err)
	}
	if !ok {
		log.Printf("pin rejected for card %s, session reset", c.sess.card.MaskedNumber())
		return c.fail(ErrInvalidPin)
	}

	c.sess.state = StatePINVerified
	return nil
}

func (c *controller) Accounts(ctx context.Context) ([]*bank.Account, error) {
	ctx, span := c.tracer.Start(ctx, "atm.accounts",
		trace.WithAttributes(attribute.String("atm.state", string(c.sess.state))),
	)
	defer span.End()

	if c.sess.state != StatePINVerified {
		return nil, fmt.Errorf("%w: pin not verified", ErrInvalidOperation)
	}

	accounts, err := c.ledger.Accounts(ctx, c.sess.card.CardNumber)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// SelectAccount checks existence first, then ownership against a fresh
// account list. A globally existing account that is not linked to the
// authenticated card must not be selectable, so both lookups are deliberate.
func (c *controller) SelectAccount(ctx context.Context, accountNumber string) (*bank.Account, error) {
	ctx, span := c.tracer.Start(ctx, "atm.select_account",
		trace.WithAttributes(
			attribute.String("atm.state", string(c.sess.state)),
			attribute.String("account.number", bank.MaskNumber(accountNumber)),
		),
	)
	defer span.End()

	if c.sess.state != StatePINVerified {
		return nil, fmt.Errorf("%w: pin not verified", ErrInvalidOperation)
	}

	account, err := c.ledger.Account(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, bank.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	linked, err := c.ledger.Accounts(ctx, c.sess.card.CardNumber)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	owned := false
	for _, a := range linked {
		if a.AccountNumber == accountNumber {
			owned = true
			break
		}
	}
	if !owned {
		return nil, fmt.Errorf("%w: account is not linked to this card", ErrAccountNotFound)
	}

	c.sess.account = account
	c.sess.state = StateAccountSelected
	return account, nil
}

// Balance re-reads the ledger and overwrites the cached display balance. The
// cache is advisory only; it never backs a transaction decision.
func (c *controller) Balance(ctx context.Context) (int64, error) {
	ctx, span := c.tracer.Start(ctx, "atm.balance",
		trace.WithAttributes(attribute.String("atm.state", string(c.sess.state))),
	)
	defer span.End()

	if c.sess.state != StateAccountSelected {
		return 0, fmt.Errorf("%w: no account selected", ErrInvalidOperation)
	}

	balance, err := c.ledger.Balance(ctx, c.sess.account.AccountNumber)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}

	c.sess.account.Balance = balance
	return balance, nil
}

func (c *controller) Deposit(ctx context.Context, amount int64) (*Transaction, error) {
	ctx, span := c.tracer.Start(ctx, "atm.deposit",
		trace.WithAttributes(
			attribute.String("atm.state", string(c.sess.state)),
			attribute.Int64("atm.amount", amount),
		),
	)
	defer span.End()

	if c.sess.state != StateAccountSelected {
		return nil, fmt.Errorf("%w: no account selected", ErrInvalidOperation)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: deposit of %d rejected", ErrInvalidAmount, amount)
	}

	newBalance, err := c.ledger.Deposit(ctx, c.sess.account.AccountNumber, amount)
	if err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}

	tx := newTransaction(TransactionDeposit, amount, c.sess.account.AccountNumber, newBalance)
	c.sess.log = append(c.sess.log, tx)
	c.sess.account.Balance = newBalance
	c.txCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(TransactionDeposit))))

	return &tx, nil
}

// Withdraw runs its checks in a fixed order: cash inventory first (cheapest
// to verify, and the account must never be debited for cash that cannot be
// dispensed), then a fresh ledger balance, then the debit, then the physical
// dispense.
func (c *controller) Withdraw(ctx context.Context, amount int64) (*Transaction, error) {
	ctx, span := c.tracer.Start(ctx, "atm.withdraw",
		trace.WithAttributes(
			attribute.String("atm.state", string(c.sess.state)),
			attribute.Int64("atm.amount", amount),
		),
	)
	defer span.End()

	if c.sess.state != StateAccountSelected {
		return nil, fmt.Errorf("%w: no account selected", ErrInvalidOperation)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: withdrawal of %d rejected", ErrInvalidAmount, amount)
	}

	if !c.dispenser.HasSufficientCash(amount) {
		return nil, ErrInsufficientCash
	}

	balance, err := c.ledger.Balance(ctx, c.sess.account.AccountNumber)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	c.sess.account.Balance = balance
	if balance < amount {
		return nil, ErrInsufficientFunds
	}

	newBalance, err := c.ledger.Withdraw(ctx, c.sess.account.AccountNumber, amount)
	if err != nil {
		if errors.Is(err, bank.ErrInsufficientFunds) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("withdraw: %w", err)
	}

	if err := c.dispenser.DispenseCash(ctx, amount); err != nil {
		// The debit has already happened: funds are gone and no cash was
		// issued. Surface the inconsistency as its own fatal kind; recovery
		// is an operator decision, not something to improvise here.
		span.RecordError(err)
		log.Printf("FATAL dispense failure after debit: account %s debited %d, balance %d: %v",
			bank.MaskNumber(c.sess.account.AccountNumber), amount, newBalance, err)
		return nil, fmt.Errorf("%w: %v", ErrDispenseFailed, err)
	}

	tx := newTransaction(TransactionWithdrawal, amount, c.sess.account.AccountNumber, newBalance)
	c.sess.log = append(c.sess.log, tx)
	c.sess.account.Balance = newBalance
	c.txCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(TransactionWithdrawal))))

	return &tx, nil
}

func (c *controller) Transactions() []Transaction {
	out := make([]Transaction, len(c.sess.log))
	copy(out, c.sess.log)
	return out
}

// EjectCard ends the session from any state. It is idempotent and never
// fails; a reader fault is logged and the reset proceeds regardless.
func (c *controller) EjectCard(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "atm.eject_card",
		trace.WithAttributes(attribute.String("atm.state", string(c.sess.state))),
	)
	defer span.End()

	if c.sess.card != nil {
		if err := c.reader.EjectCard(ctx); err != nil {
			log.Printf("card reader eject failed: %v", err)
		}
	}

	c.reset()
	return nil
}

// fail applies the declared reset policy for the error kind, then returns
// the error unchanged.
func (c *controller) fail(err error) error {
	if resetsSession(err) {
		c.reset()
	}
	return err
}

// reset replaces the session value wholesale.
func (c *controller) reset() {
	c.sess = newSession()
}
