package storage

import (
	"errors"

	"github.com/chris/payment-webhook-ledger/pkg/models"
)

// ErrNotFound is returned when a requested user, account or transaction does not exist.
var ErrNotFound = errors.New("not found")

// ErrAccountExists is returned when creating an account whose ID is already taken.
var ErrAccountExists = errors.New("account already exists")

// ErrUserExists is returned when creating a user whose ID or email is already taken.
var ErrUserExists = errors.New("user already exists")

// ErrDuplicateTransaction is returned when a transaction with the same provider transaction ID was already recorded.
var ErrDuplicateTransaction = errors.New("transaction already recorded")

// ErrOwnershipMismatch is returned when a transaction references an account that the user does not own.
var ErrOwnershipMismatch = models.ErrOwnershipMismatch

// ErrInvalidTransition is returned when a transaction is not in a state that allows the requested change.
var ErrInvalidTransition = models.ErrInvalidTransition

// ErrNonPositiveAmount is returned when a balance increment is zero or negative.
var ErrNonPositiveAmount = models.ErrNonPositiveAmount
