package models

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is assigned to accounts and transactions created without an explicit currency.
const DefaultCurrency = "RUB"

var (
	// ErrInvalidTransition is returned when a transaction status change is not allowed by the state machine.
	ErrInvalidTransition = errors.New("invalid transaction status transition")

	// ErrNonPositiveAmount is returned when an amount that must be strictly positive is zero or negative.
	ErrNonPositiveAmount = errors.New("amount must be positive")

	// ErrNegativeBalance is returned when an operation would leave an account balance below zero.
	ErrNegativeBalance = errors.New("insufficient funds")

	// ErrInvalidCurrency is returned for currency codes that are not three upper-case letters.
	ErrInvalidCurrency = errors.New("currency must be a three-letter ISO 4217 code")

	// ErrOwnershipMismatch is returned when a transaction's user does not own its account.
	ErrOwnershipMismatch = errors.New("account does not belong to user")

	// ErrSameAccountTransfer is returned when a transfer names the same source and target account.
	ErrSameAccountTransfer = errors.New("cannot transfer to the same account")
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateCurrency checks that code is an ISO 4217 style currency code.
func ValidateCurrency(code string) error {
	if !currencyPattern.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return nil
}

// User is a customer that owns accounts.
type User struct {
	ID        int64     `json:"id" dynamodbav:"user_id"`
	Email     string    `json:"email" dynamodbav:"email"`
	FullName  string    `json:"full_name" dynamodbav:"full_name"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// Account holds a user's balance in a single currency.
type Account struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewAccount returns an empty account owned by userID.
func NewAccount(id, userID int64, currency string) *Account {
	if currency == "" {
		currency = DefaultCurrency
	}
	now := time.Now().UTC()
	return &Account{
		ID:        id,
		UserID:    userID,
		Balance:   decimal.Zero,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Credit adds a positive amount to the balance.
func (a *Account) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// Debit removes a positive amount from the balance. The balance never goes below zero.
func (a *Account) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if !a.HasSufficientBalance(amount) {
		return ErrNegativeBalance
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// HasSufficientBalance reports whether amount can be debited.
func (a *Account) HasSufficientBalance(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// TransactionStatus defines the possible states of a transaction.
type TransactionStatus string

const (
	PENDING   TransactionStatus = "pending"
	COMPLETED TransactionStatus = "completed"
	FAILED    TransactionStatus = "failed"
	CANCELLED TransactionStatus = "cancelled"
)

// TransactionType defines the kind of money movement a transaction records.
type TransactionType string

const (
	DEPOSIT    TransactionType = "deposit"
	WITHDRAWAL TransactionType = "withdrawal"
	TRANSFER   TransactionType = "transfer"
)

// transitions lists, for every non-terminal status, the statuses it may move to.
var transitions = map[TransactionStatus][]TransactionStatus{
	PENDING: {COMPLETED, FAILED, CANCELLED},
	FAILED:  {CANCELLED},
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible from s.
func (s TransactionStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// SourceStatuses returns the statuses from which a transaction may move to target.
// Storage implementations use it to build conditional updates.
func SourceStatuses(target TransactionStatus) []TransactionStatus {
	var sources []TransactionStatus
	for _, from := range []TransactionStatus{PENDING, COMPLETED, FAILED, CANCELLED} {
		if from.CanTransitionTo(target) {
			sources = append(sources, from)
		}
	}
	return sources
}

// Transaction is the record of a single payment.
// TransactionID is the provider's identifier and doubles as the idempotency key.
type Transaction struct {
	ID              string            `json:"id"`
	TransactionID   string            `json:"transaction_id"`
	AccountID       int64             `json:"account_id"`
	UserID          int64             `json:"user_id"`
	Amount          decimal.Decimal   `json:"amount"`
	Currency        string            `json:"currency"`
	Type            TransactionType   `json:"type"`
	Status          TransactionStatus `json:"status"`
	TargetAccountID *int64            `json:"target_account_id,omitempty"`
	Description     string            `json:"description,omitempty"`
	ExternalData    string            `json:"external_data,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func newTransaction(transactionID string, accountID, userID int64, amount decimal.Decimal, currency string, txType TransactionType, description string) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	if err := ValidateCurrency(currency); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Transaction{
		ID:            uuid.New().String(),
		TransactionID: transactionID,
		AccountID:     accountID,
		UserID:        userID,
		Amount:        amount,
		Currency:      currency,
		Type:          txType,
		Status:        PENDING,
		Description:   description,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// NewDeposit creates a pending deposit, e.g. a provider top-up received through the webhook.
func NewDeposit(transactionID string, accountID, userID int64, amount decimal.Decimal, currency, description, externalData string) (*Transaction, error) {
	if description == "" {
		description = "Account top-up"
	}
	tx, err := newTransaction(transactionID, accountID, userID, amount, currency, DEPOSIT, description)
	if err != nil {
		return nil, err
	}
	tx.ExternalData = externalData
	return tx, nil
}

// NewWithdrawal creates a pending withdrawal.
func NewWithdrawal(transactionID string, accountID, userID int64, amount decimal.Decimal, currency, description string) (*Transaction, error) {
	if description == "" {
		description = "Account withdrawal"
	}
	return newTransaction(transactionID, accountID, userID, amount, currency, WITHDRAWAL, description)
}

// NewTransfer creates a pending transfer between two accounts.
func NewTransfer(transactionID string, fromAccountID, toAccountID, userID int64, amount decimal.Decimal, currency, description string) (*Transaction, error) {
	if fromAccountID == toAccountID {
		return nil, ErrSameAccountTransfer
	}
	if description == "" {
		description = fmt.Sprintf("Transfer to account %d", toAccountID)
	}
	tx, err := newTransaction(transactionID, fromAccountID, userID, amount, currency, TRANSFER, description)
	if err != nil {
		return nil, err
	}
	tx.TargetAccountID = &toAccountID
	return tx, nil
}

// ValidateOwnership checks the transaction's user against the owner of its account.
func (t *Transaction) ValidateOwnership(accountUserID int64) error {
	if t.UserID != accountUserID {
		return fmt.Errorf("%w: transaction user %d, account owner %d", ErrOwnershipMismatch, t.UserID, accountUserID)
	}
	return nil
}

func (t *Transaction) IsPending() bool   { return t.Status == PENDING }
func (t *Transaction) IsCompleted() bool { return t.Status == COMPLETED }
func (t *Transaction) IsFailed() bool    { return t.Status == FAILED }

// CanBeProcessed reports whether the transaction may still be completed or failed.
func (t *Transaction) CanBeProcessed() bool {
	return t.Status == PENDING
}

// CanBeCancelled reports whether the transaction may be cancelled.
func (t *Transaction) CanBeCancelled() bool {
	return t.Status.CanTransitionTo(CANCELLED)
}

// MarkCompleted moves a pending transaction to completed.
func (t *Transaction) MarkCompleted() error {
	return t.transition(COMPLETED, "")
}

// MarkFailed moves a pending transaction to failed, recording the reason in the description.
func (t *Transaction) MarkFailed(reason string) error {
	return t.transition(FAILED, reason)
}

// Cancel moves a pending or failed transaction to cancelled.
func (t *Transaction) Cancel(reason string) error {
	return t.transition(CANCELLED, reason)
}

func (t *Transaction) transition(to TransactionStatus, reason string) error {
	if !t.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, to)
	}
	t.Status = to
	if d := StatusDescription(to, reason); d != "" {
		t.Description = d
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// StatusDescription returns the description recorded for a transition with a reason,
// or an empty string when the description should be left unchanged.
func StatusDescription(to TransactionStatus, reason string) string {
	if reason == "" {
		return ""
	}
	switch to {
	case FAILED:
		return "Error: " + reason
	case CANCELLED:
		return "Cancelled: " + reason
	}
	return ""
}
