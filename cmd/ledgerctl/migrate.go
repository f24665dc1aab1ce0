package main

import (
	"fmt"

	"github.com/chris/payment-webhook-ledger/pkg/bootstrap"
	"github.com/spf13/cobra"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the PostgreSQL schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeFn, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			m, ok := store.(bootstrap.Migrator)
			if !ok {
				return fmt.Errorf("storage backend %q has no schema to migrate", a.cfg.StorageBackend)
			}
			if err := m.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}
