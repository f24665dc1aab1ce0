package storage

import (
	"context"

	"github.com/chris/payment-webhook-ledger/pkg/models"
	"github.com/shopspring/decimal"
)

// AccountReader defines the interface for reading accounts.
type AccountReader interface {
	// GetAccount retrieves an account by its ID. It returns ErrNotFound if the account does not exist.
	GetAccount(ctx context.Context, accountID int64) (*models.Account, error)
}

// AccountWriter defines the interface for creating accounts and mutating balances.
type AccountWriter interface {
	// CreateAccount stores a new account. It returns ErrAccountExists if the ID is taken.
	CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error)

	// IncrementBalance atomically adds a positive amount to the account balance and
	// returns the balance produced by that update.
	IncrementBalance(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error)
}

// AccountStore combines the reader and writer interfaces.
type AccountStore interface {
	AccountReader
	AccountWriter
}
