package notify

import (
	"time"

	"github.com/shopspring/decimal"
)

// MessageType defines the type of a ledger event.
type MessageType string

const (
	// MessageTypeBalanceCredited is published after a notification has been applied to an account.
	MessageTypeBalanceCredited MessageType = "balance_credited"

	// MessageTypeStalePending is published by the reconciler for each transaction stuck in pending.
	MessageTypeStalePending MessageType = "stale_pending"
)

// Message represents a generic ledger event.
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// BalanceCreditedPayload is the payload for a balance_credited message.
type BalanceCreditedPayload struct {
	UserID        int64           `json:"user_id"`
	AccountID     int64           `json:"account_id"`
	TransactionID string          `json:"transaction_id"`
	PaymentID     string          `json:"payment_id"`
	Change        decimal.Decimal `json:"change"`
	NewBalance    decimal.Decimal `json:"new_balance"`
}

// StalePendingPayload is the payload for a stale_pending message.
type StalePendingPayload struct {
	TransactionID string          `json:"transaction_id"`
	PaymentID     string          `json:"payment_id"`
	AccountID     int64           `json:"account_id"`
	UserID        int64           `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
	PendingFor    string          `json:"pending_for"`
}
