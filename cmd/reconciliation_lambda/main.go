package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chris/payment-webhook-ledger/pkg/bootstrap"
	"github.com/chris/payment-webhook-ledger/pkg/config"
	"github.com/chris/payment-webhook-ledger/pkg/reconcile"
)

var reconciler *reconcile.Reconciler

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	ctx := context.Background()
	store, _, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	publisher, err := bootstrap.NewPublisher(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	reconciler = reconcile.New(store, publisher, cfg.StalePendingAfter, logger)
}

// HandleRequest is triggered by an EventBridge Schedule.
func HandleRequest(ctx context.Context) error {
	result, err := reconciler.Run(ctx)
	if err != nil {
		reconciler.Logger.Error("reconciliation failed", slog.Any("error", err))
		return err
	}

	reconciler.Logger.Info("reconciliation finished",
		slog.Int("stale", len(result.Stale)),
		slog.Int("published", result.Published),
		slog.Int("failed", result.Failed),
	)
	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
