package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/payment-webhook-ledger/pkg/models"
	"github.com/chris/payment-webhook-ledger/pkg/storage"
)

const conditionalCheckFailed = "ConditionalCheckFailed"

// GetTransactionByExternalID retrieves a transaction by the provider's transaction ID.
func (s *Store) GetTransactionByExternalID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.TransactionsTableName),
		Key: map[string]types.AttributeValue{
			"transaction_id": &types.AttributeValueMemberS{Value: transactionID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, storage.ErrNotFound
	}
	return unmarshalTransaction(result.Item)
}

// CreateTransaction records a new transaction. The write is a single DynamoDB transaction
// that checks the account owner and refuses to overwrite an existing transaction ID.
func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	slog.Log(ctx, slog.LevelDebug, "creating transaction", "transaction_id", tx.TransactionID, "account_id", tx.AccountID)

	txAV, err := attributevalue.MarshalMap(newTransactionItem(tx))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: the account must exist and belong to the transaction's user.
				ConditionCheck: &types.ConditionCheck{
					TableName:           aws.String(s.AccountsTableName),
					Key:                 numberKey("account_id", tx.AccountID),
					ConditionExpression: aws.String("user_id = :user_id"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":user_id": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", tx.UserID)},
					},
				},
			},
			{
				// Operation 2: create the transaction record.
				Put: &types.Put{
					TableName:           aws.String(s.TransactionsTableName),
					Item:                txAV,
					ConditionExpression: aws.String("attribute_not_exists(transaction_id)"),
				},
			},
		},
	}

	for attempt := 1; ; attempt++ {
		_, err = s.Client.TransactWriteItems(ctx, input)
		if err == nil {
			return tx, nil
		}

		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			reasons := tce.CancellationReasons
			if len(reasons) > 1 && aws.ToString(reasons[1].Code) == conditionalCheckFailed {
				return nil, storage.ErrDuplicateTransaction
			}
			if !isTransactionConflict(err) && len(reasons) > 0 && aws.ToString(reasons[0].Code) == conditionalCheckFailed {
				return nil, storage.ErrOwnershipMismatch
			}
		}
		if !isTransactionConflict(err) {
			return nil, fmt.Errorf("failed to execute transaction: %w", err)
		}

		// A conflict on the transaction item means a concurrent delivery of the same ID may
		// have just been recorded.
		_, getErr := s.GetTransactionByExternalID(ctx, tx.TransactionID)
		switch {
		case getErr == nil:
			return nil, storage.ErrDuplicateTransaction
		case !errors.Is(getErr, storage.ErrNotFound):
			return nil, getErr
		}

		if attempt == maxConflictAttempts {
			return nil, fmt.Errorf("failed to execute transaction after %d conflicting attempts: %w", attempt, err)
		}
		slog.Log(ctx, slog.LevelDebug, "retrying conflicting transaction write", "transaction_id", tx.TransactionID, "attempt", attempt)
		if err := s.waitForRetry(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

// CompleteTransaction moves a pending transaction to completed.
func (s *Store) CompleteTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return s.transition(ctx, transactionID, models.COMPLETED, "")
}

// FailTransaction moves a pending transaction to failed.
func (s *Store) FailTransaction(ctx context.Context, transactionID, reason string) (*models.Transaction, error) {
	return s.transition(ctx, transactionID, models.FAILED, reason)
}

// CancelTransaction moves a pending or failed transaction to cancelled.
func (s *Store) CancelTransaction(ctx context.Context, transactionID, reason string) (*models.Transaction, error) {
	return s.transition(ctx, transactionID, models.CANCELLED, reason)
}

// transition updates the status only if the stored status may move to the target, so two
// concurrent transitions of the same record cannot both succeed.
func (s *Store) transition(ctx context.Context, transactionID string, to models.TransactionStatus, reason string) (*models.Transaction, error) {
	sources := models.SourceStatuses(to)
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no status may move to %s", storage.ErrInvalidTransition, to)
	}

	values := map[string]types.AttributeValue{
		":to":  &types.AttributeValueMemberS{Value: string(to)},
		":now": &types.AttributeValueMemberS{Value: formatTimestamp(time.Now())},
	}
	placeholders := make([]string, len(sources))
	for i, from := range sources {
		placeholders[i] = fmt.Sprintf(":from%d", i)
		values[placeholders[i]] = &types.AttributeValueMemberS{Value: string(from)}
	}

	update := "SET #status = :to, updated_at = :now"
	if description := models.StatusDescription(to, reason); description != "" {
		update += ", description = :description"
		values[":description"] = &types.AttributeValueMemberS{Value: description}
	}

	result, err := s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.TransactionsTableName),
		Key: map[string]types.AttributeValue{
			"transaction_id": &types.AttributeValueMemberS{Value: transactionID},
		},
		UpdateExpression:    aws.String(update),
		ConditionExpression: aws.String(fmt.Sprintf("#status IN (%s)", strings.Join(placeholders, ", "))),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues:           values,
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			if len(condCheckFailed.Item) == 0 {
				return nil, fmt.Errorf("transaction %s: %w", transactionID, storage.ErrNotFound)
			}
			current := "unknown"
			if status, ok := condCheckFailed.Item["status"].(*types.AttributeValueMemberS); ok {
				current = status.Value
			}
			return nil, fmt.Errorf("%w: %s -> %s", storage.ErrInvalidTransition, current, to)
		}
		return nil, fmt.Errorf("failed to update transaction status to %s: %w", to, err)
	}

	return unmarshalTransaction(result.Attributes)
}
