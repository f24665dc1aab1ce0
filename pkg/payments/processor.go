package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chris/payment-webhook-ledger/pkg/models"
	"github.com/chris/payment-webhook-ledger/pkg/signature"
	"github.com/chris/payment-webhook-ledger/pkg/storage"
	"github.com/shopspring/decimal"
)

// CompletionPolicy selects what happens to a recorded transaction after its amount has been credited.
type CompletionPolicy int

const (
	// MarkCompleted moves the transaction from pending to completed once the balance is credited.
	// This is the default.
	MarkCompleted CompletionPolicy = iota

	// LeavePending keeps every credited transaction pending.
	// Pending records then cannot be told apart from credits that never happened, so the
	// reconciler reports all of them.
	LeavePending
)

// Notification is a payment notification received from the provider.
type Notification struct {
	TransactionID string
	AccountID     int64
	UserID        int64
	Amount        decimal.Decimal
	Signature     string

	// Raw is the notification as received; it is stored on the transaction as external data.
	Raw []byte
}

// Payload returns the signed fields of the notification.
func (n Notification) Payload() signature.Payload {
	return signature.Payload{
		AccountID:     n.AccountID,
		Amount:        n.Amount,
		TransactionID: n.TransactionID,
		UserID:        n.UserID,
	}
}

// Processor turns provider notifications into ledger mutations.
// It holds no per-request state and is safe for concurrent use.
type Processor struct {
	store      storage.LedgerRepository
	completion CompletionPolicy
	currency   string
	logger     *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithCompletionPolicy overrides the default MarkCompleted policy.
func WithCompletionPolicy(policy CompletionPolicy) Option {
	return func(p *Processor) { p.completion = policy }
}

// WithCurrency sets the currency of auto-provisioned accounts.
func WithCurrency(currency string) Option {
	return func(p *Processor) { p.currency = currency }
}

// WithLogger sets the logger used for processing diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// NewProcessor creates a new Processor backed by store.
func NewProcessor(store storage.LedgerRepository, opts ...Option) *Processor {
	p := &Processor{
		store:      store,
		completion: MarkCompleted,
		currency:   models.DefaultCurrency,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessPayment verifies a notification and credits the referenced account exactly once per
// provider transaction ID.
//
// Domain failures are reported through the returned Outcome. A non-nil error means an
// unexpected storage fault while reading ledger state; nothing has been written in that case.
func (p *Processor) ProcessPayment(ctx context.Context, n Notification, secret string) (Outcome, error) {
	log := p.logger.With(
		slog.String("transaction_id", n.TransactionID),
		slog.Int64("account_id", n.AccountID),
		slog.Int64("user_id", n.UserID),
	)

	// 1. Authenticate the notification. Nothing is read before this passes.
	if !signature.Verify(n.Payload(), secret, n.Signature) {
		log.Warn("rejected notification with invalid signature")
		return failure(KindInvalidSignature, "Invalid signature"), nil
	}

	// 2. The provider's transaction ID is a permanent dedup key, whatever the recorded status.
	existing, err := p.store.GetTransactionByExternalID(ctx, n.TransactionID)
	switch {
	case err == nil:
		log.Info("duplicate notification", slog.String("status", string(existing.Status)))
		return failure(KindDuplicateTransaction, "Transaction already processed"), nil
	case !errors.Is(err, storage.ErrNotFound):
		return Outcome{}, fmt.Errorf("failed to look up transaction: %w", err)
	}

	// 3. Resolve the user.
	if _, err := p.store.GetUser(ctx, n.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return failure(KindUserNotFound, "User not found"), nil
		}
		return Outcome{}, fmt.Errorf("failed to get user: %w", err)
	}

	// 4. Resolve or auto-provision the account.
	account, outcome, err := p.resolveAccount(ctx, n, log)
	if err != nil || outcome != nil {
		if outcome != nil {
			return *outcome, nil
		}
		return Outcome{}, err
	}

	// 5. Record the transaction before moving money, so a crash after this point leaves a pending record.
	tx, err := models.NewDeposit(n.TransactionID, n.AccountID, n.UserID, n.Amount, account.Currency, "", string(n.Raw))
	if err != nil {
		return failure(KindPaymentCreationError, fmt.Sprintf("Failed to create payment: %v", err)), nil
	}
	created, err := p.store.CreateTransaction(ctx, tx)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicateTransaction):
			log.Info("duplicate notification lost the insert race")
			return failure(KindDuplicateTransaction, "Transaction already processed"), nil
		case errors.Is(err, storage.ErrOwnershipMismatch):
			return failure(KindAccountOwnershipError, "Account does not belong to user"), nil
		}
		log.Error("failed to record transaction", slog.Any("error", err))
		return failure(KindPaymentCreationError, fmt.Sprintf("Failed to create payment: %v", err)), nil
	}

	// 6. Credit the account. On failure the record stays pending for reconciliation.
	newBalance, err := p.store.IncrementBalance(ctx, n.AccountID, n.Amount)
	if err != nil {
		log.Error("failed to credit account, transaction left pending", slog.String("payment_id", created.ID), slog.Any("error", err))
		return failure(KindBalanceUpdateError, fmt.Sprintf("Failed to update balance: %v", err)), nil
	}

	// 7. Funds have moved; a failed status update must not turn this into a failure.
	if p.completion == MarkCompleted {
		if _, err := p.store.CompleteTransaction(ctx, created.TransactionID); err != nil {
			log.Error("credited transaction could not be marked completed", slog.String("payment_id", created.ID), slog.Any("error", err))
		}
	}

	log.Info("payment processed", slog.String("payment_id", created.ID), slog.String("new_balance", newBalance.String()))
	return success(created.ID, newBalance), nil
}

// resolveAccount returns the account referenced by n, creating it when it does not exist yet.
// A non-nil Outcome is a domain failure to hand back to the caller.
func (p *Processor) resolveAccount(ctx context.Context, n Notification, log *slog.Logger) (*models.Account, *Outcome, error) {
	account, err := p.store.GetAccount(ctx, n.AccountID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("failed to get account: %w", err)
		}

		account, err = p.store.CreateAccount(ctx, models.NewAccount(n.AccountID, n.UserID, p.currency))
		switch {
		case errors.Is(err, storage.ErrAccountExists):
			// A concurrent notification provisioned it first; use what was stored.
			account, err = p.store.GetAccount(ctx, n.AccountID)
			if err != nil {
				out := failure(KindAccountCreationError, fmt.Sprintf("Failed to create account: %v", err))
				return nil, &out, nil
			}
		case err != nil:
			log.Error("failed to auto-provision account", slog.Any("error", err))
			out := failure(KindAccountCreationError, fmt.Sprintf("Failed to create account: %v", err))
			return nil, &out, nil
		default:
			log.Info("auto-provisioned account")
		}
	}

	if account.UserID != n.UserID {
		out := failure(KindAccountOwnershipError, "Account does not belong to user")
		return nil, &out, nil
	}
	return account, nil, nil
}
