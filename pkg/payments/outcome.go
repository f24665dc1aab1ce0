package payments

import "github.com/shopspring/decimal"

// ErrorKind identifies why a notification was not applied. The values are part of the
// webhook contract and must reach the transport boundary unchanged.
type ErrorKind string

const (
	KindInvalidSignature      ErrorKind = "INVALID_SIGNATURE"
	KindDuplicateTransaction  ErrorKind = "DUPLICATE_TRANSACTION"
	KindUserNotFound          ErrorKind = "USER_NOT_FOUND"
	KindAccountOwnershipError ErrorKind = "ACCOUNT_OWNERSHIP_ERROR"
	KindAccountCreationError  ErrorKind = "ACCOUNT_CREATION_ERROR"
	KindPaymentCreationError  ErrorKind = "PAYMENT_CREATION_ERROR"
	KindBalanceUpdateError    ErrorKind = "BALANCE_UPDATE_ERROR"
)

// Outcome is the result of processing one notification: either a success carrying the
// recorded payment and the resulting balance, or a failure carrying its kind.
type Outcome struct {
	Success    bool
	PaymentID  string
	NewBalance decimal.Decimal

	Kind    ErrorKind
	Message string
}

func success(paymentID string, newBalance decimal.Decimal) Outcome {
	return Outcome{
		Success:    true,
		PaymentID:  paymentID,
		NewBalance: newBalance,
		Message:    "Payment processed successfully",
	}
}

func failure(kind ErrorKind, message string) Outcome {
	return Outcome{Kind: kind, Message: message}
}
