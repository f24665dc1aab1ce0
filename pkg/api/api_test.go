package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() PaymentWebhookRequest {
	return PaymentWebhookRequest{
		TransactionID: "5eae174f-7cd0-472c-bd36-35660f00132b",
		AccountID:     1,
		UserID:        1,
		Amount:        decimal.NewFromInt(100),
		Signature:     "7b47e41efe564a062029da3367bde8844bea0fb049f894687cee5d57f2858bc8",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *PaymentWebhookRequest)
		field  string
	}{
		{"Valid", func(r *PaymentWebhookRequest) {}, ""},
		{"Two Decimal Places", func(r *PaymentWebhookRequest) { r.Amount = decimal.RequireFromString("10.25") }, ""},
		{"Trailing Zeros", func(r *PaymentWebhookRequest) { r.Amount = decimal.RequireFromString("10.2500") }, ""},
		{"Upper Case Hex Is Well Formed", func(r *PaymentWebhookRequest) { r.Signature = strings.ToUpper(r.Signature) }, ""},
		{"Empty Transaction ID", func(r *PaymentWebhookRequest) { r.TransactionID = "" }, "transaction_id"},
		{"Long Transaction ID", func(r *PaymentWebhookRequest) { r.TransactionID = strings.Repeat("x", 101) }, "transaction_id"},
		{"Zero Account", func(r *PaymentWebhookRequest) { r.AccountID = 0 }, "account_id"},
		{"Negative User", func(r *PaymentWebhookRequest) { r.UserID = -1 }, "user_id"},
		{"Zero Amount", func(r *PaymentWebhookRequest) { r.Amount = decimal.Zero }, "amount"},
		{"Negative Amount", func(r *PaymentWebhookRequest) { r.Amount = decimal.NewFromInt(-5) }, "amount"},
		{"Three Decimal Places", func(r *PaymentWebhookRequest) { r.Amount = decimal.RequireFromString("0.001") }, "amount"},
		{"Largest Storable Amount", func(r *PaymentWebhookRequest) { r.Amount = decimal.RequireFromString("9999999999999999.99") }, ""},
		{"Amount Too Large", func(r *PaymentWebhookRequest) { r.Amount = decimal.RequireFromString("10000000000000000") }, "amount"},
		{"Huge Positive Exponent", func(r *PaymentWebhookRequest) { r.Amount = decimal.RequireFromString("1e30000000") }, "amount"},
		{"Huge Negative Exponent", func(r *PaymentWebhookRequest) { r.Amount = decimal.RequireFromString("1e-3000000") }, "amount"},
		{"Long Coefficient", func(r *PaymentWebhookRequest) { r.Amount = decimal.RequireFromString("0." + strings.Repeat("1", 60)) }, "amount"},
		{"Short Signature", func(r *PaymentWebhookRequest) { r.Signature = "abc" }, "signature"},
		{"Non Hex Signature", func(r *PaymentWebhookRequest) { r.Signature = strings.Repeat("z", 64) }, "signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRequest()
			tt.mutate(&r)

			err := r.Validate()

			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Equal(t, tt.field, err.(*ValidationError).Field)
		})
	}
}

func TestDecodeAmount(t *testing.T) {
	for _, body := range []string{
		`{"amount": 100.10}`,
		`{"amount": "100.10"}`,
	} {
		var r PaymentWebhookRequest
		require.NoError(t, json.Unmarshal([]byte(body), &r))
		assert.True(t, r.Amount.Equal(decimal.RequireFromString("100.1")), body)
	}
}

func TestValidate_HugeExponentRejectedQuickly(t *testing.T) {
	var r PaymentWebhookRequest
	require.NoError(t, json.Unmarshal([]byte(`{"transaction_id":"t","account_id":1,"user_id":1,"amount":1e30000000,"signature":"`+strings.Repeat("a", 64)+`"}`), &r))

	start := time.Now()
	err := r.Validate()

	require.Error(t, err)
	assert.Equal(t, "amount", err.(*ValidationError).Field)
	assert.Less(t, time.Since(start), time.Second)
}
