package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/chris/payment-webhook-ledger/pkg/models"
	"github.com/chris/payment-webhook-ledger/pkg/storage"
	"github.com/jackc/pgx/v5"
)

func (s *Store) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	query := `SELECT id, email, full_name, created_at, updated_at FROM users WHERE id = $1`

	var user models.User
	err := s.Pool.QueryRow(ctx, query, userID).Scan(
		&user.ID, &user.Email, &user.FullName, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (id, email, full_name)
		VALUES ($1, $2, $3)
		RETURNING id, email, full_name, created_at, updated_at
	`
	var created models.User
	err := s.Pool.QueryRow(ctx, query, user.ID, user.Email, user.FullName).Scan(
		&created.ID, &created.Email, &created.FullName, &created.CreatedAt, &created.UpdatedAt,
	)
	if pgErrorCode(err) == uniqueViolation {
		return nil, fmt.Errorf("user %d: %w", user.ID, storage.ErrUserExists)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &created, nil
}
