//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chris/payment-webhook-ledger/pkg/models"
	"github.com/chris/payment-webhook-ledger/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupStore starts a PostgreSQL container and returns a migrated Store backed by it.
func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger"),
		tcpostgres.WithUsername("ledger"),
		tcpostgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := Connect(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := New(pool)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "schema must be re-applicable")

	_, err = store.CreateUser(ctx, &models.User{ID: 1, Email: "test@example.com", FullName: "Test User"})
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, &models.User{ID: 2, Email: "other@example.com", FullName: "Other User"})
	require.NoError(t, err)
	_, err = store.CreateAccount(ctx, models.NewAccount(1, 1, "RUB"))
	require.NoError(t, err)
	return store
}

func newDeposit(t *testing.T, transactionID string, accountID, userID int64, amount string) *models.Transaction {
	t.Helper()
	tx, err := models.NewDeposit(transactionID, accountID, userID, decimal.RequireFromString(amount), "RUB", "", `{"source":"test"}`)
	require.NoError(t, err)
	return tx
}

func TestPostgresStore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	t.Run("Users", func(t *testing.T) {
		user, err := store.GetUser(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "test@example.com", user.Email)

		_, err = store.GetUser(ctx, 404)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = store.CreateUser(ctx, &models.User{ID: 1, Email: "dup@example.com"})
		assert.ErrorIs(t, err, storage.ErrUserExists)
	})

	t.Run("Accounts", func(t *testing.T) {
		_, err := store.CreateAccount(ctx, models.NewAccount(1, 1, "RUB"))
		assert.ErrorIs(t, err, storage.ErrAccountExists)

		_, err = store.CreateAccount(ctx, models.NewAccount(50, 404, "RUB"))
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = store.GetAccount(ctx, 404)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = store.IncrementBalance(ctx, 404, decimal.NewFromInt(1))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Create And Transition", func(t *testing.T) {
		tx := newDeposit(t, "pg-tx-1", 1, 1, "100.50")

		created, err := store.CreateTransaction(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, tx.ID, created.ID)
		assert.True(t, created.Amount.Equal(decimal.RequireFromString("100.5")))

		_, err = store.CreateTransaction(ctx, newDeposit(t, "pg-tx-1", 1, 1, "1"))
		assert.ErrorIs(t, err, storage.ErrDuplicateTransaction)

		completed, err := store.CompleteTransaction(ctx, "pg-tx-1")
		require.NoError(t, err)
		assert.Equal(t, models.COMPLETED, completed.Status)

		_, err = store.CancelTransaction(ctx, "pg-tx-1", "too late")
		assert.ErrorIs(t, err, storage.ErrInvalidTransition)

		_, err = store.FailTransaction(ctx, "pg-missing", "x")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Ownership Is Checked On Insert", func(t *testing.T) {
		_, err := store.CreateTransaction(ctx, newDeposit(t, "pg-tx-2", 1, 2, "10"))
		assert.ErrorIs(t, err, storage.ErrOwnershipMismatch)

		_, err = store.GetTransactionByExternalID(ctx, "pg-tx-2")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Concurrent Increments", func(t *testing.T) {
		_, err := store.CreateAccount(ctx, models.NewAccount(2, 2, "RUB"))
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.IncrementBalance(ctx, 2, decimal.RequireFromString("2.50"))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		account, err := store.GetAccount(ctx, 2)
		require.NoError(t, err)
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(50)), "got %s", account.Balance)
	})

	t.Run("Stale Pending", func(t *testing.T) {
		old := newDeposit(t, "pg-stale", 1, 1, "5")
		old.CreatedAt = time.Now().UTC().Add(-time.Hour)
		_, err := store.CreateTransaction(ctx, old)
		require.NoError(t, err)
		_, err = store.CreateTransaction(ctx, newDeposit(t, "pg-fresh", 1, 1, "5"))
		require.NoError(t, err)

		stale, err := store.GetStalePendingTransactions(ctx, 20*time.Minute)
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Equal(t, "pg-stale", stale[0].TransactionID)
	})
}
