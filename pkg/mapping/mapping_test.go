package mapping

import (
	"testing"

	"github.com/chris/payment-webhook-ledger/pkg/api"
	"github.com/chris/payment-webhook-ledger/pkg/notify"
	"github.com/chris/payment-webhook-ledger/pkg/payments"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMapping(t *testing.T) {
	req := &api.PaymentWebhookRequest{
		TransactionID: "tx-1",
		AccountID:     3,
		UserID:        4,
		Amount:        decimal.RequireFromString("9.99"),
		Signature:     "sig",
	}
	raw := []byte(`{"transaction_id":"tx-1"}`)

	n := ToNotification(req, raw)
	assert.Equal(t, payments.Notification{
		TransactionID: "tx-1",
		AccountID:     3,
		UserID:        4,
		Amount:        req.Amount,
		Signature:     "sig",
		Raw:           raw,
	}, n)

	ok := payments.Outcome{Success: true, PaymentID: "p-1", NewBalance: decimal.RequireFromString("19.98"), Message: "Payment processed successfully"}
	resp := ToApiWebhookResponse(req, ok)
	assert.True(t, resp.Success)
	assert.Equal(t, "tx-1", resp.TransactionID)
	assert.Equal(t, "p-1", resp.PaymentID)

	failed := payments.Outcome{Kind: payments.KindUserNotFound, Message: "User not found"}
	assert.Equal(t, &api.ErrorResponse{Error: "User not found", ErrorCode: "USER_NOT_FOUND"}, ToApiErrorResponse(failed))

	msg := ToBalanceCreditedMessage(req, ok)
	assert.Equal(t, notify.MessageTypeBalanceCredited, msg.Type)
	payload := msg.Payload.(notify.BalanceCreditedPayload)
	assert.Equal(t, int64(3), payload.AccountID)
	assert.True(t, payload.Change.Equal(req.Amount))
}
