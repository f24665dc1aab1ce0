package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chris/payment-webhook-ledger/pkg/api"
	"github.com/chris/payment-webhook-ledger/pkg/signature"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func signCmd(a *app) *cobra.Command {
	var (
		transactionID string
		accountID     int64
		userID        int64
		amount        string
		secret        string
		body          bool
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Compute the signature of a payment notification",
		Long: `Print the canonical string and SHA-256 signature the webhook expects for the given fields.
With --body the complete notification JSON is printed instead, ready to POST.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = a.cfg.WebhookSecret
			}
			if secret == "" {
				return errors.New("no secret: pass --secret or set WEBHOOK_SECRET")
			}
			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}

			p := signature.Payload{AccountID: accountID, Amount: amt, TransactionID: transactionID, UserID: userID}
			sig := signature.Sign(p, secret)

			out := cmd.OutOrStdout()
			if body {
				data, err := json.Marshal(api.PaymentWebhookRequest{
					TransactionID: transactionID,
					AccountID:     accountID,
					UserID:        userID,
					Amount:        amt,
					Signature:     sig,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintf(out, "canonical: %s\n", signature.CanonicalString(p, secret))
			fmt.Fprintf(out, "signature: %s\n", sig)
			return nil
		},
	}

	cmd.Flags().StringVar(&transactionID, "transaction-id", "", "Provider transaction ID")
	cmd.Flags().Int64Var(&accountID, "account-id", 0, "Account ID")
	cmd.Flags().Int64Var(&userID, "user-id", 0, "User ID")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 100.50")
	cmd.Flags().StringVar(&secret, "secret", "", "Shared secret (defaults to WEBHOOK_SECRET)")
	cmd.Flags().BoolVar(&body, "body", false, "Print the full notification JSON")
	_ = cmd.MarkFlagRequired("transaction-id")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
