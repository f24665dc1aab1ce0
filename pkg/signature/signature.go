// Package signature authenticates payment provider notifications.
//
// A notification is signed by concatenating its fields in alphabetical order of
// field name (account_id, amount, transaction_id, user_id) followed by the shared
// secret, without delimiters, and taking the lower-case hex SHA-256 of the result.
package signature

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Payload holds the signed fields of a notification.
type Payload struct {
	AccountID     int64
	Amount        decimal.Decimal
	TransactionID string
	UserID        int64
}

// CanonicalAmount renders an amount the way signer and verifier must agree on:
// plain notation, no exponent, no trailing fractional zeros ("100.00" -> "100").
func CanonicalAmount(amount decimal.Decimal) string {
	return amount.String()
}

// CanonicalString returns the string that is hashed, secret included.
func CanonicalString(p Payload, secret string) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(p.AccountID, 10))
	b.WriteString(CanonicalAmount(p.Amount))
	b.WriteString(p.TransactionID)
	b.WriteString(strconv.FormatInt(p.UserID, 10))
	b.WriteString(secret)
	return b.String()
}

// Sign computes the signature of p under secret.
func Sign(p Payload, secret string) string {
	sum := sha256.Sum256([]byte(CanonicalString(p, secret)))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether provided is the signature of p under secret.
// An empty secret verifies nothing.
func Verify(p Payload, secret, provided string) bool {
	if secret == "" {
		return false
	}
	expected := Sign(p, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
