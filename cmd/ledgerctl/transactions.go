package main

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/chris/payment-webhook-ledger/pkg/models"
	"github.com/chris/payment-webhook-ledger/pkg/storage"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func transactionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "Inspect and resolve recorded transactions",
	}

	cmd.AddCommand(transactionsShowCmd(a))
	cmd.AddCommand(transitionCmd(a, "complete", "Mark a pending transaction as completed", false,
		func(ctx context.Context, s storage.TransactionManager, id, _ string) (*models.Transaction, error) {
			return s.CompleteTransaction(ctx, id)
		}))
	cmd.AddCommand(transitionCmd(a, "fail", "Mark a pending transaction as failed", true,
		func(ctx context.Context, s storage.TransactionManager, id, reason string) (*models.Transaction, error) {
			return s.FailTransaction(ctx, id, reason)
		}))
	cmd.AddCommand(transitionCmd(a, "cancel", "Cancel a pending or failed transaction", true,
		func(ctx context.Context, s storage.TransactionManager, id, reason string) (*models.Transaction, error) {
			return s.CancelTransaction(ctx, id, reason)
		}))

	return cmd
}

func transactionsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [transaction-id]",
		Short: "Show a transaction by provider transaction ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeFn, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			tx, err := store.GetTransactionByExternalID(ctx, args[0])
			if err != nil {
				return err
			}
			renderTransactions(cmd.OutOrStdout(), *tx)
			return nil
		},
	}
}

type transitionFunc func(ctx context.Context, s storage.TransactionManager, transactionID, reason string) (*models.Transaction, error)

func transitionCmd(a *app, use, short string, withReason bool, apply transitionFunc) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   use + " [transaction-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeFn, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			tx, err := apply(ctx, store, args[0], reason)
			if err != nil {
				return err
			}
			a.logger.Info("transaction updated", "transaction_id", tx.TransactionID, "status", tx.Status)
			renderTransactions(cmd.OutOrStdout(), *tx)
			return nil
		},
	}

	if withReason {
		cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded in the description")
	}
	return cmd
}

func renderTransactions(w io.Writer, txs ...models.Transaction) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Transaction ID", "Payment ID", "Account", "User", "Amount", "Status", "Description", "Created"})
	for _, tx := range txs {
		table.Append([]string{
			tx.TransactionID,
			tx.ID,
			strconv.FormatInt(tx.AccountID, 10),
			strconv.FormatInt(tx.UserID, 10),
			tx.Amount.StringFixed(2) + " " + tx.Currency,
			string(tx.Status),
			tx.Description,
			tx.CreatedAt.Format(time.RFC3339),
		})
	}
	table.Render()
}
