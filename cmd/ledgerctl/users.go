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

func usersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}
	cmd.AddCommand(usersCreateCmd(a))
	cmd.AddCommand(usersShowCmd(a))
	return cmd
}

func usersCreateCmd(a *app) *cobra.Command {
	var user models.User

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user.ID <= 0 {
				return errors.New("--id must be positive")
			}
			ctx := cmd.Context()
			store, closeFn, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			created, err := store.CreateUser(ctx, &user)
			if err != nil {
				return err
			}
			renderUsers(cmd.OutOrStdout(), created)
			return nil
		},
	}

	cmd.Flags().Int64Var(&user.ID, "id", 0, "User ID")
	cmd.Flags().StringVar(&user.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&user.FullName, "name", "", "Full name")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func usersShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [user-id]",
		Short: "Show a user",
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

			user, err := store.GetUser(ctx, id)
			if err != nil {
				return err
			}
			renderUsers(cmd.OutOrStdout(), user)
			return nil
		},
	}
}

func renderUsers(w io.Writer, users ...*models.User) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Email", "Name", "Created"})
	for _, u := range users {
		table.Append([]string{strconv.FormatInt(u.ID, 10), u.Email, u.FullName, u.CreatedAt.Format(time.RFC3339)})
	}
	table.Render()
}
