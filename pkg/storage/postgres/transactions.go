package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chris/payment-webhook-ledger/pkg/models"
	"github.com/chris/payment-webhook-ledger/pkg/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id::text, transaction_id, account_id, user_id, amount::text, currency,
	payment_type, status, description, target_account_id, external_data, created_at, updated_at`

func (s *Store) GetTransactionByExternalID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payments WHERE transaction_id = $1`

	tx, err := scanTransaction(s.Pool.QueryRow(ctx, query, transactionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// CreateTransaction inserts the payment only when the referenced account is owned by its user.
// The unique index on transaction_id rejects a second insert of the same provider transaction.
func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	id, err := uuid.Parse(tx.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction id %q: %w", tx.ID, err)
	}

	query := `
		INSERT INTO payments (id, transaction_id, account_id, user_id, amount, currency,
			payment_type, status, description, target_account_id, external_data, created_at, updated_at)
		SELECT $1::uuid, $2::text, a.id, a.user_id, $5::numeric, $6::text,
			$7::text, $8::text, $9::text, $10::bigint, $11::text, $12::timestamptz, $13::timestamptz
		FROM accounts a
		WHERE a.id = $3::bigint AND a.user_id = $4::bigint
		RETURNING ` + transactionColumns

	created, err := scanTransaction(s.Pool.QueryRow(ctx, query,
		id, tx.TransactionID, tx.AccountID, tx.UserID, tx.Amount.String(), tx.Currency,
		string(tx.Type), string(tx.Status), tx.Description, tx.TargetAccountID, tx.ExternalData, tx.CreatedAt, tx.UpdatedAt,
	))
	if pgErrorCode(err) == uniqueViolation {
		return nil, storage.ErrDuplicateTransaction
	}
	if errors.Is(err, pgx.ErrNoRows) {
		// Nothing was inserted because the ownership check failed. A recorded duplicate still
		// takes precedence so callers see the same outcome as the other backends.
		if _, lookupErr := s.GetTransactionByExternalID(ctx, tx.TransactionID); lookupErr == nil {
			return nil, storage.ErrDuplicateTransaction
		}
		return nil, fmt.Errorf("account %d: %w", tx.AccountID, storage.ErrOwnershipMismatch)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return created, nil
}

func (s *Store) CompleteTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return s.transition(ctx, transactionID, models.COMPLETED, "")
}

func (s *Store) FailTransaction(ctx context.Context, transactionID, reason string) (*models.Transaction, error) {
	return s.transition(ctx, transactionID, models.FAILED, reason)
}

func (s *Store) CancelTransaction(ctx context.Context, transactionID, reason string) (*models.Transaction, error) {
	return s.transition(ctx, transactionID, models.CANCELLED, reason)
}

func (s *Store) transition(ctx context.Context, transactionID string, to models.TransactionStatus, reason string) (*models.Transaction, error) {
	sources := models.SourceStatuses(to)
	from := make([]string, len(sources))
	for i, status := range sources {
		from[i] = string(status)
	}

	query := `
		UPDATE payments
		SET status = $2, description = COALESCE(NULLIF($3::text, ''), description), updated_at = now()
		WHERE transaction_id = $1 AND status = ANY($4::text[])
		RETURNING ` + transactionColumns

	updated, err := scanTransaction(s.Pool.QueryRow(ctx, query,
		transactionID, string(to), models.StatusDescription(to, reason), from,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		current, lookupErr := s.GetTransactionByExternalID(ctx, transactionID)
		if lookupErr != nil {
			if errors.Is(lookupErr, storage.ErrNotFound) {
				return nil, fmt.Errorf("transaction %s: %w", transactionID, storage.ErrNotFound)
			}
			return nil, lookupErr
		}
		return nil, fmt.Errorf("%w: %s -> %s", storage.ErrInvalidTransition, current.Status, to)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction status to %s: %w", to, err)
	}
	return updated, nil
}

func (s *Store) GetStalePendingTransactions(ctx context.Context, olderThan time.Duration) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM payments
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at`

	rows, err := s.Pool.Query(ctx, query, string(models.PENDING), time.Now().UTC().Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("failed to query for stale pending transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stale pending transactions: %w", err)
	}
	return transactions, nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		tx             models.Transaction
		amount         string
		txType, status string
	)
	err := row.Scan(
		&tx.ID, &tx.TransactionID, &tx.AccountID, &tx.UserID, &amount, &tx.Currency,
		&txType, &status, &tx.Description, &tx.TargetAccountID, &tx.ExternalData, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount %q for transaction %s: %w", amount, tx.TransactionID, err)
	}
	tx.Type = models.TransactionType(txType)
	tx.Status = models.TransactionStatus(status)
	return &tx, nil
}
