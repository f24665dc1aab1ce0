package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/chris/payment-webhook-ledger/pkg/models"
	"github.com/chris/payment-webhook-ledger/pkg/storage"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Decimals cross the wire as text so no value is ever rounded through a float.

func (s *Store) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	query := `SELECT id, user_id, balance::text, currency, created_at, updated_at FROM accounts WHERE id = $1`
	account, err := s.scanAccount(s.Pool.QueryRow(ctx, query, accountID))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, err
}

func (s *Store) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (id, user_id, balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)
		RETURNING id, user_id, balance::text, currency, created_at, updated_at
	`
	created, err := s.scanAccount(s.Pool.QueryRow(ctx, query,
		account.ID, account.UserID, account.Balance.String(), account.Currency, account.CreatedAt, account.UpdatedAt,
	))
	switch pgErrorCode(err) {
	case uniqueViolation:
		return nil, fmt.Errorf("account %d: %w", account.ID, storage.ErrAccountExists)
	case foreignKeyViolation:
		return nil, fmt.Errorf("owner %d: %w", account.UserID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return created, nil
}

// IncrementBalance adds amount in one UPDATE and returns the balance that statement wrote.
func (s *Store) IncrementBalance(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, storage.ErrNonPositiveAmount
	}

	query := `
		UPDATE accounts SET balance = balance + $2::numeric, updated_at = now()
		WHERE id = $1
		RETURNING balance::text
	`
	var raw string
	err := s.Pool.QueryRow(ctx, query, accountID, amount.String()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("account %d: %w", accountID, storage.ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to update balance: %w", err)
	}
	return decimal.NewFromString(raw)
}

func (s *Store) scanAccount(row pgx.Row) (*models.Account, error) {
	var (
		account models.Account
		balance string
	)
	err := row.Scan(&account.ID, &account.UserID, &balance, &account.Currency, &account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if account.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("invalid balance %q for account %d: %w", balance, account.ID, err)
	}
	return &account, nil
}
