package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chris/payment-webhook-ledger/pkg/api"
	"github.com/chris/payment-webhook-ledger/pkg/bootstrap"
	"github.com/chris/payment-webhook-ledger/pkg/config"
	"github.com/chris/payment-webhook-ledger/pkg/handlers/webhook"
	"github.com/chris/payment-webhook-ledger/pkg/payments"
)

var handler *webhook.Handler

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	// Initialize dependencies once per execution environment.
	ctx := context.Background()
	store, _, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	publisher, err := bootstrap.NewPublisher(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	processor := payments.NewProcessor(store, bootstrap.ProcessorOptions(cfg, logger)...)
	handler = webhook.NewHandler(processor, publisher, cfg.WebhookSecret, logger)
}

// HandleRequest processes a payment notification delivered through API Gateway.
func HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if req.HTTPMethod != "" && req.HTTPMethod != http.MethodPost {
		return respond(http.StatusMethodNotAllowed, &api.ErrorResponse{Error: "Method not allowed"})
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return respond(http.StatusBadRequest, &api.ErrorResponse{Error: "Invalid request body"})
		}
		body = decoded
	}

	status, resp := handler.Handle(ctx, body)
	return respond(status, resp)
}

func respond(status int, body interface{}) (events.APIGatewayProxyResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}, nil
}

func main() {
	lambda.Start(HandleRequest)
}
