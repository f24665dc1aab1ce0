package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chris/payment-webhook-ledger/pkg/api"
	"github.com/chris/payment-webhook-ledger/pkg/handlers/webhook/mocks"
	"github.com/chris/payment-webhook-ledger/pkg/notify"
	notify_mocks "github.com/chris/payment-webhook-ledger/pkg/notify/mocks"
	"github.com/chris/payment-webhook-ledger/pkg/payments"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "gfdmhghif38yrf9ew0jkf32"
	validBody  = `{"transaction_id":"5eae174f-7cd0-472c-bd36-35660f00132b","account_id":1,"user_id":1,"amount":100,"signature":"7b47e41efe564a062029da3367bde8844bea0fb049f894687cee5d57f2858bc8"}`
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func post(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/payment", bytes.NewReader([]byte(body)))
	rr := httptest.NewRecorder()
	h.PaymentWebhook(rr, req)
	return rr
}

func TestPaymentWebhook_Success(t *testing.T) {
	mockProcessor := mocks.NewPaymentProcessor(t)
	mockPublisher := notify_mocks.NewPublisher(t)
	h := NewHandler(mockProcessor, mockPublisher, testSecret, discard)

	outcome := payments.Outcome{
		Success:    true,
		PaymentID:  "a0d1c1c2-3b1e-4a44-9d9e-2b2f7a0c1a11",
		NewBalance: decimal.RequireFromString("100"),
		Message:    "Payment processed successfully",
	}
	mockProcessor.On("ProcessPayment", mock.Anything, mock.MatchedBy(func(n payments.Notification) bool {
		return n.TransactionID == "5eae174f-7cd0-472c-bd36-35660f00132b" &&
			n.Amount.Equal(decimal.NewFromInt(100)) && string(n.Raw) == validBody
	}), testSecret).Return(outcome, nil).Once()
	mockPublisher.On("Publish", mock.Anything, mock.MatchedBy(func(m notify.Message) bool {
		return m.Type == notify.MessageTypeBalanceCredited
	})).Return(nil).Once()

	rr := post(h, validBody)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var resp api.PaymentWebhookResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, outcome.PaymentID, resp.PaymentID)
	assert.Equal(t, "5eae174f-7cd0-472c-bd36-35660f00132b", resp.TransactionID)
	assert.True(t, resp.NewBalance.Equal(decimal.NewFromInt(100)))
}

func TestPaymentWebhook_PublishFailureKeepsSuccess(t *testing.T) {
	mockProcessor := mocks.NewPaymentProcessor(t)
	mockPublisher := notify_mocks.NewPublisher(t)
	h := NewHandler(mockProcessor, mockPublisher, testSecret, discard)

	mockProcessor.On("ProcessPayment", mock.Anything, mock.Anything, testSecret).
		Return(payments.Outcome{Success: true, PaymentID: "p", NewBalance: decimal.NewFromInt(1)}, nil).Once()
	mockPublisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("queue unavailable")).Once()

	rr := post(h, validBody)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPaymentWebhook_Failures(t *testing.T) {
	tests := []struct {
		kind   payments.ErrorKind
		status int
	}{
		{payments.KindInvalidSignature, http.StatusBadRequest},
		{payments.KindDuplicateTransaction, http.StatusConflict},
		{payments.KindUserNotFound, http.StatusNotFound},
		{payments.KindAccountOwnershipError, http.StatusBadRequest},
		{payments.KindAccountCreationError, http.StatusInternalServerError},
		{payments.KindPaymentCreationError, http.StatusInternalServerError},
		{payments.KindBalanceUpdateError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			mockProcessor := mocks.NewPaymentProcessor(t)
			h := NewHandler(mockProcessor, nil, testSecret, discard)

			mockProcessor.On("ProcessPayment", mock.Anything, mock.Anything, testSecret).
				Return(payments.Outcome{Kind: tt.kind, Message: "failed"}, nil).Once()

			rr := post(h, validBody)

			assert.Equal(t, tt.status, rr.Code)
			var resp api.ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, string(tt.kind), resp.ErrorCode)
			assert.Equal(t, "failed", resp.Error)
		})
	}
}

func TestPaymentWebhook_UnexpectedErrorHidesDetails(t *testing.T) {
	mockProcessor := mocks.NewPaymentProcessor(t)
	h := NewHandler(mockProcessor, nil, testSecret, discard)

	mockProcessor.On("ProcessPayment", mock.Anything, mock.Anything, testSecret).
		Return(payments.Outcome{}, errors.New("dial tcp 10.0.0.5:5432: connection refused")).Once()

	rr := post(h, validBody)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rr.Body.String())
}

func TestPaymentWebhook_RejectedBeforeProcessing(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		body   string
		status int
	}{
		{"Malformed JSON", testSecret, `{"transaction_id":`, http.StatusBadRequest},
		{"Float Account ID", testSecret, `{"transaction_id":"t","account_id":1.5,"user_id":1,"amount":1,"signature":"` + sig64 + `"}`, http.StatusBadRequest},
		{"Zero Amount", testSecret, `{"transaction_id":"t","account_id":1,"user_id":1,"amount":0,"signature":"` + sig64 + `"}`, http.StatusBadRequest},
		{"Negative Amount", testSecret, `{"transaction_id":"t","account_id":1,"user_id":1,"amount":"-10","signature":"` + sig64 + `"}`, http.StatusBadRequest},
		{"Too Precise Amount", testSecret, `{"transaction_id":"t","account_id":1,"user_id":1,"amount":1.001,"signature":"` + sig64 + `"}`, http.StatusBadRequest},
		{"Huge Exponent Amount", testSecret, `{"transaction_id":"t","account_id":1,"user_id":1,"amount":1e30000000,"signature":"` + sig64 + `"}`, http.StatusBadRequest},
		{"Tiny Exponent Amount", testSecret, `{"transaction_id":"t","account_id":1,"user_id":1,"amount":1e-3000000,"signature":"` + sig64 + `"}`, http.StatusBadRequest},
		{"Amount Beyond Storage", testSecret, `{"transaction_id":"t","account_id":1,"user_id":1,"amount":"10000000000000000","signature":"` + sig64 + `"}`, http.StatusBadRequest},
		{"Bad Signature Format", testSecret, `{"transaction_id":"t","account_id":1,"user_id":1,"amount":1,"signature":"xyz"}`, http.StatusBadRequest},
		{"Missing Secret", "", validBody, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockProcessor := mocks.NewPaymentProcessor(t)
			h := NewHandler(mockProcessor, nil, tt.secret, discard)

			rr := post(h, tt.body)

			assert.Equal(t, tt.status, rr.Code)
			mockProcessor.AssertNotCalled(t, "ProcessPayment", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

const sig64 = "0000000000000000000000000000000000000000000000000000000000000000"

func TestHandle_SharedByLambda(t *testing.T) {
	mockProcessor := mocks.NewPaymentProcessor(t)
	h := NewHandler(mockProcessor, nil, testSecret, discard)

	mockProcessor.On("ProcessPayment", mock.Anything, mock.Anything, testSecret).
		Return(payments.Outcome{Kind: payments.KindDuplicateTransaction, Message: "Transaction already processed"}, nil).Once()

	status, body := h.Handle(context.Background(), []byte(validBody))

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, &api.ErrorResponse{Error: "Transaction already processed", ErrorCode: "DUPLICATE_TRANSACTION"}, body)
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	Health(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}
