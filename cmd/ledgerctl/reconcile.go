package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/chris/payment-webhook-ledger/pkg/notify"
	"github.com/chris/payment-webhook-ledger/pkg/reconcile"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func reconcileCmd(a *app) *cobra.Command {
	var (
		olderThan time.Duration
		publish   bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "List transactions stuck in pending",
		Long: `List transactions that have been pending for longer than --older-than.
With --publish a stale_pending event is also sent for each one, as the scheduled job does.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeFn, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			var publisher notify.Publisher = &notify.NoOpPublisher{}
			if publish {
				if publisher, err = a.newPublisher(ctx, a.cfg, a.logger); err != nil {
					return err
				}
			}
			if olderThan <= 0 {
				olderThan = a.cfg.StalePendingAfter
			}

			result, err := reconcile.New(store, publisher, olderThan, a.logger).Run(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(result.Stale) == 0 {
				fmt.Fprintln(out, "no stale pending transactions")
				return nil
			}

			now := time.Now()
			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Transaction ID", "Payment ID", "Account", "User", "Amount", "Pending For"})
			for _, tx := range result.Stale {
				table.Append([]string{
					tx.TransactionID,
					tx.ID,
					strconv.FormatInt(tx.AccountID, 10),
					strconv.FormatInt(tx.UserID, 10),
					tx.Amount.StringFixed(2),
					now.Sub(tx.CreatedAt).Truncate(time.Second).String(),
				})
			}
			table.Render()

			if publish {
				fmt.Fprintf(out, "published %d, failed %d\n", result.Published, result.Failed)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Pending age threshold (defaults to STALE_PENDING_AFTER)")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish a stale_pending event for each result")

	return cmd
}
