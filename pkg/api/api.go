// Package api defines the wire types of the webhook HTTP API.
package api

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// MaxTransactionIDLength is the longest provider transaction ID accepted.
const MaxTransactionIDLength = 100

// Amounts are stored as NUMERIC(18,2): at most 16 integer digits and 2 fractional digits.
const (
	amountIntegerDigits = 16
	amountScale         = 2

	// maxAmountCoefficientBits covers every coefficient a NUMERIC(18,2) value can be written
	// with, trailing zeros included.
	maxAmountCoefficientBits = 128
)

// MaxAmount is the smallest amount that no longer fits the ledger columns.
var MaxAmount = decimal.New(1, amountIntegerDigits)

var signaturePattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// PaymentWebhookRequest is the body of a payment notification.
// Amount accepts both JSON numbers and strings and never passes through a float.
type PaymentWebhookRequest struct {
	TransactionID string          `json:"transaction_id"`
	AccountID     int64           `json:"account_id"`
	UserID        int64           `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Signature     string          `json:"signature"`
}

// ValidationError describes a request that was rejected before processing.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the request shape. It returns the first problem found as a *ValidationError.
func (r *PaymentWebhookRequest) Validate() error {
	switch {
	case r.TransactionID == "":
		return &ValidationError{Field: "transaction_id", Message: "is required"}
	case len(r.TransactionID) > MaxTransactionIDLength:
		return &ValidationError{Field: "transaction_id", Message: fmt.Sprintf("must be at most %d characters", MaxTransactionIDLength)}
	case r.AccountID <= 0:
		return &ValidationError{Field: "account_id", Message: "must be positive"}
	case r.UserID <= 0:
		return &ValidationError{Field: "user_id", Message: "must be positive"}
	case !r.Amount.IsPositive():
		return &ValidationError{Field: "amount", Message: "must be greater than zero"}
	case !amountInRange(r.Amount):
		return &ValidationError{Field: "amount", Message: fmt.Sprintf("must be less than %s", MaxAmount)}
	case !r.Amount.Equal(r.Amount.Round(amountScale)):
		return &ValidationError{Field: "amount", Message: "must have at most two decimal places"}
	case !signaturePattern.MatchString(r.Signature):
		return &ValidationError{Field: "signature", Message: "must be 64 hexadecimal characters"}
	}
	return nil
}

// amountInRange bounds the exponent and coefficient size before any comparison,
// since comparing or rounding rescales the coefficient to the other operand's exponent.
func amountInRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp > amountIntegerDigits || exp < -(amountIntegerDigits+amountScale) {
		return false
	}
	if d.Coefficient().BitLen() > maxAmountCoefficientBits {
		return false
	}
	return d.LessThan(MaxAmount)
}

// IsValidationError reports whether err is a request validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PaymentWebhookResponse is returned when a notification has been applied.
type PaymentWebhookResponse struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	TransactionID string          `json:"transaction_id"`
	PaymentID     string          `json:"payment_id"`
	NewBalance    decimal.Decimal `json:"new_balance"`
}

// ErrorResponse is returned for every rejected request. ErrorCode is omitted for
// failures that carry no domain error kind.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code,omitempty"`
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
}
