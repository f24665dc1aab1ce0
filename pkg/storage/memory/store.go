// Package memory provides an in-process implementation of the storage interfaces.
// It is used for local development and for tests that exercise concurrent access.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chris/payment-webhook-ledger/pkg/models"
	"github.com/chris/payment-webhook-ledger/pkg/storage"
	"github.com/shopspring/decimal"
)

// Store keeps users, accounts and transactions in maps guarded by a single mutex.
// Values are copied on the way in and out so callers never share memory with the store.
type Store struct {
	mu           sync.Mutex
	users        map[int64]models.User
	accounts     map[int64]models.Account
	transactions map[string]models.Transaction
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:        make(map[int64]models.User),
		accounts:     make(map[int64]models.Account),
		transactions: make(map[string]models.Transaction),
	}
}

var _ storage.Storage = (*Store)(nil)

func (s *Store) GetUser(_ context.Context, userID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &user, nil
}

func (s *Store) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return nil, fmt.Errorf("user %d: %w", user.ID, storage.ErrUserExists)
	}
	for _, existing := range s.users {
		if user.Email != "" && strings.EqualFold(existing.Email, user.Email) {
			return nil, fmt.Errorf("email %s: %w", user.Email, storage.ErrUserExists)
		}
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	s.users[user.ID] = *user

	created := *user
	return &created, nil
}

func (s *Store) GetAccount(_ context.Context, accountID int64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &account, nil
}

func (s *Store) CreateAccount(_ context.Context, account *models.Account) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; ok {
		return nil, fmt.Errorf("account %d: %w", account.ID, storage.ErrAccountExists)
	}
	if _, ok := s.users[account.UserID]; !ok {
		return nil, fmt.Errorf("owner %d: %w", account.UserID, storage.ErrNotFound)
	}
	s.accounts[account.ID] = *account

	created := *account
	return &created, nil
}

func (s *Store) IncrementBalance(_ context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, storage.ErrNonPositiveAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return decimal.Zero, fmt.Errorf("account %d: %w", accountID, storage.ErrNotFound)
	}
	if err := account.Credit(amount); err != nil {
		return decimal.Zero, err
	}
	account.UpdatedAt = time.Now().UTC()
	s.accounts[accountID] = account
	return account.Balance, nil
}

func (s *Store) GetTransactionByExternalID(_ context.Context, transactionID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &tx, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx *models.Transaction) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[tx.TransactionID]; ok {
		return nil, storage.ErrDuplicateTransaction
	}
	account, ok := s.accounts[tx.AccountID]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", tx.AccountID, storage.ErrOwnershipMismatch)
	}
	if err := tx.ValidateOwnership(account.UserID); err != nil {
		return nil, err
	}
	s.transactions[tx.TransactionID] = *tx

	created := *tx
	return &created, nil
}

func (s *Store) CompleteTransaction(_ context.Context, transactionID string) (*models.Transaction, error) {
	return s.transition(transactionID, func(tx *models.Transaction) error { return tx.MarkCompleted() })
}

func (s *Store) FailTransaction(_ context.Context, transactionID, reason string) (*models.Transaction, error) {
	return s.transition(transactionID, func(tx *models.Transaction) error { return tx.MarkFailed(reason) })
}

func (s *Store) CancelTransaction(_ context.Context, transactionID, reason string) (*models.Transaction, error) {
	return s.transition(transactionID, func(tx *models.Transaction) error { return tx.Cancel(reason) })
}

func (s *Store) transition(transactionID string, apply func(*models.Transaction) error) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, storage.ErrNotFound)
	}
	if err := apply(&tx); err != nil {
		return nil, err
	}
	s.transactions[transactionID] = tx

	updated := tx
	return &updated, nil
}

func (s *Store) GetStalePendingTransactions(_ context.Context, olderThan time.Duration) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	var stale []models.Transaction
	for _, tx := range s.transactions {
		if tx.Status == models.PENDING && tx.CreatedAt.Before(cutoff) {
			stale = append(stale, tx)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].CreatedAt.Before(stale[j].CreatedAt) })
	return stale, nil
}
