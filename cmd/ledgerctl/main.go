package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/chris/payment-webhook-ledger/pkg/bootstrap"
	"github.com/chris/payment-webhook-ledger/pkg/config"
	"github.com/chris/payment-webhook-ledger/pkg/notify"
	"github.com/chris/payment-webhook-ledger/pkg/storage"
	"github.com/spf13/cobra"
)

var Version = "dev"

// app carries what every subcommand needs. Tests replace the factories.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	openStore    func(ctx context.Context, cfg *config.Config) (storage.Storage, func(), error)
	newPublisher func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (notify.Publisher, error)
}

func newApp() *app {
	return &app{
		openStore: func(ctx context.Context, cfg *config.Config) (storage.Storage, func(), error) {
			if err := cfg.Validate(); err != nil {
				return nil, nil, err
			}
			return bootstrap.OpenStore(ctx, cfg)
		},
		newPublisher: bootstrap.NewPublisher,
	}
}

func (a *app) store(ctx context.Context) (storage.Storage, func(), error) {
	store, closeFn, err := a.openStore(ctx, a.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s storage: %w", a.cfg.StorageBackend, err)
	}
	return store, closeFn, nil
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Administer the payment webhook ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg == nil {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				a.cfg = cfg
			}
			if a.logger == nil {
				a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			}
			return nil
		},
	}

	rootCmd.AddCommand(signCmd(a))
	rootCmd.AddCommand(migrateCmd(a))
	rootCmd.AddCommand(usersCmd(a))
	rootCmd.AddCommand(accountsCmd(a))
	rootCmd.AddCommand(transactionsCmd(a))
	rootCmd.AddCommand(reconcileCmd(a))

	return rootCmd
}

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
