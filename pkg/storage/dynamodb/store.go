package dynamodb

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/payment-webhook-ledger/pkg/storage"
)

const (
	// maxConflictAttempts bounds how often a write rejected by a concurrent transaction is retried.
	maxConflictAttempts = 4

	defaultConflictBackoff = 25 * time.Millisecond

	transactionConflict = "TransactionConflict"
)

// DynamoDBAPI is the subset of the DynamoDB client used by Store.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store implements the Storage interface using AWS DynamoDB.
type Store struct {
	Client                DynamoDBAPI
	UsersTableName        string
	AccountsTableName     string
	TransactionsTableName string

	// ConflictBackoff is the base delay between retries of a write that collided with a
	// concurrent DynamoDB transaction on the same item. The n-th retry waits n times as long.
	ConflictBackoff time.Duration
}

// New creates a new Store.
func New(client DynamoDBAPI, usersTable, accountsTable, transactionsTable string) *Store {
	return &Store{
		Client:                client,
		UsersTableName:        usersTable,
		AccountsTableName:     accountsTable,
		TransactionsTableName: transactionsTable,
		ConflictBackoff:       defaultConflictBackoff,
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

// isTransactionConflict reports whether err means another DynamoDB transaction held one of
// the items. Such a write was not applied and may be retried.
func isTransactionConflict(err error) bool {
	var conflict *types.TransactionConflictException
	if errors.As(err, &conflict) {
		return true
	}
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if aws.ToString(reason.Code) == transactionConflict {
				return true
			}
		}
	}
	return false
}

// waitForRetry sleeps before the next attempt of a conflicting write.
func (s *Store) waitForRetry(ctx context.Context, attempt int) error {
	if s.ConflictBackoff <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.ConflictBackoff * time.Duration(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
