// Package webhook exposes the payment processor to the payment provider.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/chris/payment-webhook-ledger/pkg/api"
	"github.com/chris/payment-webhook-ledger/pkg/mapping"
	"github.com/chris/payment-webhook-ledger/pkg/notify"
	"github.com/chris/payment-webhook-ledger/pkg/payments"
)

// maxBodyBytes bounds the size of a notification body.
const maxBodyBytes = 1 << 20

// PaymentProcessor is the part of payments.Processor used by the handler.
type PaymentProcessor interface {
	ProcessPayment(ctx context.Context, n payments.Notification, secret string) (payments.Outcome, error)
}

// Handler holds the dependencies of the webhook endpoint. It is shared by the HTTP server
// and the API Gateway Lambda.
type Handler struct {
	Processor PaymentProcessor
	Publisher notify.Publisher
	Secret    string
	Logger    *slog.Logger
}

// NewHandler creates a new Handler. A nil publisher disables event publishing.
func NewHandler(processor PaymentProcessor, publisher notify.Publisher, secret string, logger *slog.Logger) *Handler {
	if publisher == nil {
		publisher = &notify.NoOpPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Processor: processor, Publisher: publisher, Secret: secret, Logger: logger}
}

// StatusCode maps a processing failure kind to its HTTP status.
func StatusCode(kind payments.ErrorKind) int {
	switch kind {
	case payments.KindInvalidSignature, payments.KindAccountOwnershipError:
		return http.StatusBadRequest
	case payments.KindDuplicateTransaction:
		return http.StatusConflict
	case payments.KindUserNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Handle processes a raw notification body and returns the status code and the value to
// encode as the JSON response.
func (h *Handler) Handle(ctx context.Context, body []byte) (int, interface{}) {
	var req api.PaymentWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return http.StatusBadRequest, &api.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)}
	}
	if err := req.Validate(); err != nil {
		return http.StatusBadRequest, &api.ErrorResponse{Error: err.Error()}
	}

	if h.Secret == "" {
		h.Logger.Error("webhook secret is not configured")
		return http.StatusInternalServerError, &api.ErrorResponse{Error: "Webhook secret not configured"}
	}

	outcome, err := h.Processor.ProcessPayment(ctx, mapping.ToNotification(&req, body), h.Secret)
	if err != nil {
		h.Logger.Error("failed to process payment", slog.String("transaction_id", req.TransactionID), slog.Any("error", err))
		return http.StatusInternalServerError, &api.ErrorResponse{Error: "Internal server error"}
	}
	if !outcome.Success {
		return StatusCode(outcome.Kind), mapping.ToApiErrorResponse(outcome)
	}

	// The credit is committed; a failed publish must not change the response.
	if err := h.Publisher.Publish(ctx, mapping.ToBalanceCreditedMessage(&req, outcome)); err != nil {
		h.Logger.Error("failed to publish balance event", slog.String("transaction_id", req.TransactionID), slog.Any("error", err))
	}

	return http.StatusOK, mapping.ToApiWebhookResponse(&req, outcome)
}

// PaymentWebhook handles POST /api/v1/webhook/payment.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, &api.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}

	status, resp := h.Handle(r.Context(), body)
	writeJSON(w, status, resp)
}

// Health handles GET /.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &api.HealthResponse{Status: "ok", Service: "payment-webhook-ledger"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
