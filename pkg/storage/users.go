package storage

import (
	"context"

	"github.com/chris/payment-webhook-ledger/pkg/models"
)

// UserReader defines the interface for reading users.
type UserReader interface {
	// GetUser retrieves a user by ID. It returns ErrNotFound if the user does not exist.
	GetUser(ctx context.Context, userID int64) (*models.User, error)
}

// UserWriter is used by administrative tooling to seed users.
type UserWriter interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
}
