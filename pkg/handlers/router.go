package handlers

import (
	"log/slog"
	"net/http"

	"github.com/chris/payment-webhook-ledger/pkg/handlers/webhook"
	"github.com/chris/payment-webhook-ledger/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the webhook endpoints on a chi router with request logging and panic recovery.
func NewRouter(h *webhook.Handler, logger *slog.Logger) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.NewStructuredLogger(logger))
	router.Use(middleware.Recoverer(logger))

	router.Get("/", webhook.Health)
	router.Post("/api/v1/webhook/payment", h.PaymentWebhook)

	return router
}
