package storage

import (
	"context"
	"time"

	"github.com/chris/payment-webhook-ledger/pkg/models"
)

// TransactionReader defines the interface for reading transaction data.
type TransactionReader interface {
	// GetTransactionByExternalID retrieves a transaction by the provider's transaction ID.
	// It returns ErrNotFound if no such transaction was ever recorded.
	GetTransactionByExternalID(ctx context.Context, transactionID string) (*models.Transaction, error)

	// GetStalePendingTransactions retrieves transactions that have been pending for longer than olderThan.
	GetStalePendingTransactions(ctx context.Context, olderThan time.Duration) ([]models.Transaction, error)
}

// TransactionManager defines the interface for recording transactions and moving them through their lifecycle.
type TransactionManager interface {
	// CreateTransaction stores a new transaction. The provider's transaction ID must be unique:
	// a second insert returns ErrDuplicateTransaction. The insert is rejected with
	// ErrOwnershipMismatch unless the account exists and is owned by the transaction's user.
	CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)

	// CompleteTransaction moves a pending transaction to completed.
	CompleteTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)

	// FailTransaction moves a pending transaction to failed.
	FailTransaction(ctx context.Context, transactionID, reason string) (*models.Transaction, error)

	// CancelTransaction moves a pending or failed transaction to cancelled.
	CancelTransaction(ctx context.Context, transactionID, reason string) (*models.Transaction, error)
}

// TransactionStore combines the reader and manager interfaces.
type TransactionStore interface {
	TransactionReader
	TransactionManager
}
