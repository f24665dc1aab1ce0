package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/chris/payment-webhook-ledger/pkg/models"
	"github.com/chris/payment-webhook-ledger/pkg/notify"
	notify_mocks "github.com/chris/payment-webhook-ledger/pkg/notify/mocks"
	storage_mocks "github.com/chris/payment-webhook-ledger/pkg/storage/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func staleTransactions() []models.Transaction {
	created := time.Now().Add(-time.Hour)
	return []models.Transaction{
		{ID: "p-1", TransactionID: "tx-1", AccountID: 1, UserID: 1, Amount: decimal.NewFromInt(10), Status: models.PENDING, CreatedAt: created},
		{ID: "p-2", TransactionID: "tx-2", AccountID: 2, UserID: 2, Amount: decimal.NewFromInt(20), Status: models.PENDING, CreatedAt: created},
	}
}

func TestRun(t *testing.T) {
	t.Run("Publishes Each Stale Transaction", func(t *testing.T) {
		mockStore := storage_mocks.NewLedgerRepository(t)
		mockPublisher := notify_mocks.NewPublisher(t)
		r := New(mockStore, mockPublisher, 30*time.Minute, discard)

		mockStore.On("GetStalePendingTransactions", mock.Anything, 30*time.Minute).Return(staleTransactions(), nil).Once()
		mockPublisher.On("Publish", mock.Anything, mock.MatchedBy(func(m notify.Message) bool {
			return m.Type == notify.MessageTypeStalePending
		})).Return(nil).Twice()

		result, err := r.Run(context.Background())

		require.NoError(t, err)
		assert.Len(t, result.Stale, 2)
		assert.Equal(t, 2, result.Published)
		assert.Equal(t, 0, result.Failed)
	})

	t.Run("Publish Failure Does Not Stop The Batch", func(t *testing.T) {
		mockStore := storage_mocks.NewLedgerRepository(t)
		mockPublisher := notify_mocks.NewPublisher(t)
		r := New(mockStore, mockPublisher, 0, discard)

		mockStore.On("GetStalePendingTransactions", mock.Anything, DefaultThreshold).Return(staleTransactions(), nil).Once()
		mockPublisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("throttled")).Once()
		mockPublisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()

		result, err := r.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, result.Published)
		assert.Equal(t, 1, result.Failed)
	})

	t.Run("Nothing Stale", func(t *testing.T) {
		mockStore := storage_mocks.NewLedgerRepository(t)
		r := New(mockStore, nil, time.Minute, discard)

		mockStore.On("GetStalePendingTransactions", mock.Anything, time.Minute).Return(nil, nil).Once()

		result, err := r.Run(context.Background())

		require.NoError(t, err)
		assert.Empty(t, result.Stale)
	})

	t.Run("Store Fails", func(t *testing.T) {
		mockStore := storage_mocks.NewLedgerRepository(t)
		r := New(mockStore, nil, time.Minute, discard)

		mockStore.On("GetStalePendingTransactions", mock.Anything, time.Minute).Return(nil, errors.New("timeout")).Once()

		_, err := r.Run(context.Background())

		assert.ErrorContains(t, err, "failed to get stale pending transactions")
	})
}

func TestStalePendingMessage(t *testing.T) {
	tx := staleTransactions()[0]
	now := tx.CreatedAt.Add(90 * time.Minute)

	msg := StalePendingMessage(tx, now)

	payload := msg.Payload.(notify.StalePendingPayload)
	assert.Equal(t, "tx-1", payload.TransactionID)
	assert.Equal(t, "p-1", payload.PaymentID)
	assert.Equal(t, "1h30m0s", payload.PendingFor)
}
