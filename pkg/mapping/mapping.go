package mapping

import (
	"github.com/chris/payment-webhook-ledger/pkg/api"
	"github.com/chris/payment-webhook-ledger/pkg/notify"
	"github.com/chris/payment-webhook-ledger/pkg/payments"
)

// ToNotification converts a webhook request into the notification handed to the processor.
// raw is the request body as received and is kept as the transaction's external data.
func ToNotification(req *api.PaymentWebhookRequest, raw []byte) payments.Notification {
	return payments.Notification{
		TransactionID: req.TransactionID,
		AccountID:     req.AccountID,
		UserID:        req.UserID,
		Amount:        req.Amount,
		Signature:     req.Signature,
		Raw:           raw,
	}
}

// ToApiWebhookResponse converts a successful outcome to the API response.
func ToApiWebhookResponse(req *api.PaymentWebhookRequest, outcome payments.Outcome) *api.PaymentWebhookResponse {
	return &api.PaymentWebhookResponse{
		Success:       true,
		Message:       outcome.Message,
		TransactionID: req.TransactionID,
		PaymentID:     outcome.PaymentID,
		NewBalance:    outcome.NewBalance,
	}
}

// ToApiErrorResponse converts a failed outcome to the API error body.
func ToApiErrorResponse(outcome payments.Outcome) *api.ErrorResponse {
	return &api.ErrorResponse{
		Error:     outcome.Message,
		ErrorCode: string(outcome.Kind),
	}
}

// ToBalanceCreditedMessage builds the event published after a successful credit.
func ToBalanceCreditedMessage(req *api.PaymentWebhookRequest, outcome payments.Outcome) notify.Message {
	return notify.Message{
		Type: notify.MessageTypeBalanceCredited,
		Payload: notify.BalanceCreditedPayload{
			UserID:        req.UserID,
			AccountID:     req.AccountID,
			TransactionID: req.TransactionID,
			PaymentID:     outcome.PaymentID,
			Change:        req.Amount,
			NewBalance:    outcome.NewBalance,
		},
	}
}
