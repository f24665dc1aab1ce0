package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chris/payment-webhook-ledger/pkg/bootstrap"
	"github.com/chris/payment-webhook-ledger/pkg/config"
	"github.com/chris/payment-webhook-ledger/pkg/handlers"
	"github.com/chris/payment-webhook-ledger/pkg/handlers/webhook"
	"github.com/chris/payment-webhook-ledger/pkg/payments"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if m, ok := store.(bootstrap.Migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			logger.Error("failed to migrate schema", "error", err)
			os.Exit(1)
		}
	}

	publisher, err := bootstrap.NewPublisher(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create publisher", "error", err)
		os.Exit(1)
	}

	if cfg.WebhookSecret == "" {
		logger.Warn("WEBHOOK_SECRET is not set, every notification will be rejected")
	}

	processor := payments.NewProcessor(store, bootstrap.ProcessorOptions(cfg, logger)...)
	handler := webhook.NewHandler(processor, publisher, cfg.WebhookSecret, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handlers.NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.HTTPPort, "backend", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
