package main

import (
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/chris/payment-webhook-ledger/pkg/models"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func accountsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts",
	}
	cmd.AddCommand(accountsCreateCmd(a))
	cmd.AddCommand(accountsShowCmd(a))
	return cmd
}

func accountsCreateCmd(a *app) *cobra.Command {
	var (
		id       int64
		userID   int64
		currency string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty account for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id <= 0 || userID <= 0 {
				return errors.New("--id and --user-id must be positive")
			}
			if currency == "" {
				currency = a.cfg.DefaultCurrency
			}
			if err := models.ValidateCurrency(currency); err != nil {
				return err
			}

			ctx := cmd.Context()
			store, closeFn, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if _, err := store.GetUser(ctx, userID); err != nil {
				return err
			}
			created, err := store.CreateAccount(ctx, models.NewAccount(id, userID, currency))
			if err != nil {
				return err
			}
			renderAccounts(cmd.OutOrStdout(), created)
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Account ID")
	cmd.Flags().Int64Var(&userID, "user-id", 0, "Owning user ID")
	cmd.Flags().StringVar(&currency, "currency", "", "ISO 4217 currency (defaults to DEFAULT_CURRENCY)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

func accountsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [account-id]",
		Short: "Show an account and its balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, closeFn, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			account, err := store.GetAccount(ctx, id)
			if err != nil {
				return err
			}
			renderAccounts(cmd.OutOrStdout(), account)
			return nil
		},
	}
}

func renderAccounts(w io.Writer, accounts ...*models.Account) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "User", "Balance", "Currency", "Created"})
	for _, acc := range accounts {
		table.Append([]string{
			strconv.FormatInt(acc.ID, 10),
			strconv.FormatInt(acc.UserID, 10),
			acc.Balance.StringFixed(2),
			acc.Currency,
			acc.CreatedAt.Format(time.RFC3339),
		})
	}
	table.Render()
}
