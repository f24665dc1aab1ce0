// Package bootstrap wires configuration into storage, publishers and the payment processor
// for the binaries under cmd/.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/payment-webhook-ledger/pkg/config"
	"github.com/chris/payment-webhook-ledger/pkg/notify"
	"github.com/chris/payment-webhook-ledger/pkg/payments"
	"github.com/chris/payment-webhook-ledger/pkg/storage"
	dydbstore "github.com/chris/payment-webhook-ledger/pkg/storage/dynamodb"
	"github.com/chris/payment-webhook-ledger/pkg/storage/memory"
	pgstore "github.com/chris/payment-webhook-ledger/pkg/storage/postgres"
)

// Migrator is implemented by backends that own their schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// OpenStore returns the storage backend selected by cfg and a function that releases it.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Storage, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to load SDK config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.DynamoDB.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoDB.Endpoint)
			}
		})
		store := dydbstore.New(client, cfg.DynamoDB.UsersTable, cfg.DynamoDB.AccountsTable, cfg.DynamoDB.TransactionsTable)
		return store, func() {}, nil

	case config.BackendPostgres:
		pool, err := pgstore.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pgstore.New(pool), pool.Close, nil

	case config.BackendMemory:
		return memory.New(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// NewPublisher returns an SQS publisher when a queue is configured and a no-op publisher otherwise.
func NewPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (notify.Publisher, error) {
	if cfg.SQSQueueURL == "" {
		logger.Info("SQS_QUEUE_URL not set, notifications are disabled")
		return &notify.NoOpPublisher{}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return notify.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.SQSQueueURL), nil
}

// ProcessorOptions translates cfg into payment processor options.
func ProcessorOptions(cfg *config.Config, logger *slog.Logger) []payments.Option {
	policy := payments.MarkCompleted
	if !cfg.MarkCompleted {
		policy = payments.LeavePending
	}
	return []payments.Option{
		payments.WithCompletionPolicy(policy),
		payments.WithCurrency(cfg.DefaultCurrency),
		payments.WithLogger(logger),
	}
}
