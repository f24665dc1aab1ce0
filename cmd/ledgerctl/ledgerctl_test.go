package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/chris/payment-webhook-ledger/pkg/api"
	"github.com/chris/payment-webhook-ledger/pkg/config"
	"github.com/chris/payment-webhook-ledger/pkg/models"
	"github.com/chris/payment-webhook-ledger/pkg/notify"
	notify_mocks "github.com/chris/payment-webhook-ledger/pkg/notify/mocks"
	"github.com/chris/payment-webhook-ledger/pkg/signature"
	"github.com/chris/payment-webhook-ledger/pkg/storage"
	"github.com/chris/payment-webhook-ledger/pkg/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const fixtureSecret = "gfdmhghif38yrf9ew0jkf32"

type harness struct {
	store     *memory.Store
	publisher notify.Publisher
}

func newHarness() *harness {
	return &harness{store: memory.New()}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfg := config.Default()
	cfg.StorageBackend = config.BackendMemory
	cfg.WebhookSecret = fixtureSecret

	a := &app{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		openStore: func(context.Context, *config.Config) (storage.Storage, func(), error) {
			return h.store, func() {}, nil
		},
		newPublisher: func(context.Context, *config.Config, *slog.Logger) (notify.Publisher, error) {
			return h.publisher, nil
		},
	}

	var out bytes.Buffer
	cmd := newRootCmd(a)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) seedPending(t *testing.T, transactionID string, age time.Duration) {
	t.Helper()
	ctx := context.Background()

	if _, err := h.store.GetUser(ctx, 1); err != nil {
		_, err := h.store.CreateUser(ctx, &models.User{ID: 1, Email: "one@example.com", FullName: "One"})
		require.NoError(t, err)
		_, err = h.store.CreateAccount(ctx, models.NewAccount(1, 1, ""))
		require.NoError(t, err)
	}

	tx, err := models.NewDeposit(transactionID, 1, 1, decimal.NewFromInt(100), "", "", "")
	require.NoError(t, err)
	tx.CreatedAt = tx.CreatedAt.Add(-age)
	_, err = h.store.CreateTransaction(ctx, tx)
	require.NoError(t, err)
}

func TestSign(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "sign",
		"--transaction-id", "5eae174f-7cd0-472c-bd36-35660f00132b",
		"--account-id", "1", "--user-id", "1", "--amount", "100.00")

	require.NoError(t, err)
	assert.Contains(t, out, "canonical: 11005eae174f-7cd0-472c-bd36-35660f00132b1"+fixtureSecret)
	assert.Contains(t, out, "signature: 7b47e41efe564a062029da3367bde8844bea0fb049f894687cee5d57f2858bc8")
}

func TestSignBody(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "sign", "--body", "--secret", "other",
		"--transaction-id", "tx-9", "--account-id", "3", "--user-id", "4", "--amount", "12.5")

	require.NoError(t, err)
	var req api.PaymentWebhookRequest
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &req))
	require.NoError(t, req.Validate())
	p := signature.Payload{AccountID: 3, Amount: req.Amount, TransactionID: "tx-9", UserID: 4}
	assert.True(t, signature.Verify(p, "other", req.Signature))
}

func TestSignRejectsBadAmount(t *testing.T) {
	_, err := newHarness().run(t, "sign", "--transaction-id", "tx", "--amount", "ten")

	assert.ErrorContains(t, err, "invalid amount")
}

func TestUsersAndAccounts(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "users", "create", "--id", "5", "--email", "five@example.com", "--name", "Five")
	require.NoError(t, err)
	assert.Contains(t, out, "five@example.com")

	_, err = h.run(t, "users", "create", "--id", "5", "--email", "again@example.com")
	assert.ErrorIs(t, err, storage.ErrUserExists)

	out, err = h.run(t, "accounts", "create", "--id", "50", "--user-id", "5", "--currency", "USD")
	require.NoError(t, err)
	assert.Contains(t, out, "USD")

	out, err = h.run(t, "accounts", "show", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "0.00")

	_, err = h.run(t, "accounts", "create", "--id", "51", "--user-id", "99")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = h.run(t, "accounts", "create", "--id", "52", "--user-id", "5", "--currency", "usd")
	assert.ErrorIs(t, err, models.ErrInvalidCurrency)
}

func TestTransactionTransitions(t *testing.T) {
	h := newHarness()
	h.seedPending(t, "tx-1", 0)

	out, err := h.run(t, "transactions", "fail", "tx-1", "--reason", "bank declined")
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "Error: bank declined")

	out, err = h.run(t, "tx", "cancel", "tx-1", "--reason", "customer request")
	require.NoError(t, err)
	assert.Contains(t, out, "cancelled")

	_, err = h.run(t, "tx", "complete", "tx-1")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = h.run(t, "tx", "complete", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReconcile(t *testing.T) {
	t.Run("Lists Stale Transactions", func(t *testing.T) {
		h := newHarness()
		h.seedPending(t, "tx-old", time.Hour)
		h.seedPending(t, "tx-new", 0)

		out, err := h.run(t, "reconcile")

		require.NoError(t, err)
		assert.Contains(t, out, "tx-old")
		assert.NotContains(t, out, "tx-new")
	})

	t.Run("Publishes When Asked", func(t *testing.T) {
		h := newHarness()
		h.seedPending(t, "tx-old", time.Hour)
		publisher := notify_mocks.NewPublisher(t)
		publisher.On("Publish", mock.Anything, mock.MatchedBy(func(m notify.Message) bool {
			return m.Type == notify.MessageTypeStalePending
		})).Return(nil).Once()
		h.publisher = publisher

		out, err := h.run(t, "reconcile", "--publish", "--older-than", "30m")

		require.NoError(t, err)
		assert.Contains(t, out, "published 1, failed 0")
	})

	t.Run("Nothing Stale", func(t *testing.T) {
		out, err := newHarness().run(t, "reconcile")

		require.NoError(t, err)
		assert.Contains(t, out, "no stale pending transactions")
	})
}

func TestMigrateUnsupportedBackend(t *testing.T) {
	_, err := newHarness().run(t, "migrate")

	assert.ErrorContains(t, err, "has no schema to migrate")
}
