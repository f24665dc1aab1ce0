// Package reconcile finds transactions that were recorded but never left the pending state.
//
// A pending record older than the threshold is either a credit whose balance update failed,
// or, under the LeavePending completion policy, any credit at all. Operators resolve them
// with ledgerctl; the reconciler only reports.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/payment-webhook-ledger/pkg/models"
	"github.com/chris/payment-webhook-ledger/pkg/notify"
	"github.com/chris/payment-webhook-ledger/pkg/storage"
)

// DefaultThreshold is how long a transaction may stay pending before it is reported.
const DefaultThreshold = 20 * time.Minute

// Reconciler reports stale pending transactions.
type Reconciler struct {
	Store     storage.TransactionReader
	Publisher notify.Publisher
	Threshold time.Duration
	Logger    *slog.Logger
}

// New creates a Reconciler. A nil publisher only logs; a zero threshold uses DefaultThreshold.
func New(store storage.TransactionReader, publisher notify.Publisher, threshold time.Duration, logger *slog.Logger) *Reconciler {
	if publisher == nil {
		publisher = &notify.NoOpPublisher{}
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{Store: store, Publisher: publisher, Threshold: threshold, Logger: logger}
}

// Result summarizes one reconciliation run.
type Result struct {
	Stale     []models.Transaction
	Published int
	Failed    int
}

// Run lists stale pending transactions and publishes a stale_pending event for each.
// A failed publish is counted and logged but does not stop the batch.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	stale, err := r.Store.GetStalePendingTransactions(ctx, r.Threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to get stale pending transactions: %w", err)
	}

	result := &Result{Stale: stale}
	if len(stale) == 0 {
		r.Logger.Info("no stale pending transactions found")
		return result, nil
	}

	r.Logger.Warn("found stale pending transactions", slog.Int("count", len(stale)), slog.Duration("threshold", r.Threshold))

	now := time.Now()
	for _, tx := range stale {
		if err := r.Publisher.Publish(ctx, StalePendingMessage(tx, now)); err != nil {
			result.Failed++
			r.Logger.Error("failed to publish stale pending event", slog.String("transaction_id", tx.TransactionID), slog.Any("error", err))
			continue
		}
		result.Published++
	}

	return result, nil
}

// StalePendingMessage builds the event reported for a stale transaction.
func StalePendingMessage(tx models.Transaction, now time.Time) notify.Message {
	return notify.Message{
		Type: notify.MessageTypeStalePending,
		Payload: notify.StalePendingPayload{
			TransactionID: tx.TransactionID,
			PaymentID:     tx.ID,
			AccountID:     tx.AccountID,
			UserID:        tx.UserID,
			Amount:        tx.Amount,
			CreatedAt:     tx.CreatedAt,
			PendingFor:    now.Sub(tx.CreatedAt).Truncate(time.Second).String(),
		},
	}
}
