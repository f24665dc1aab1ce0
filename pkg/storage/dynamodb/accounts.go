package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/payment-webhook-ledger/pkg/models"
	"github.com/chris/payment-webhook-ledger/pkg/storage"
	"github.com/shopspring/decimal"
)

// GetAccount retrieves an account by its ID.
func (s *Store) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.AccountsTableName),
		Key:            numberKey("account_id", accountID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var item accountItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return item.toModel()
}

// CreateAccount creates a new account record. An existing account is never overwritten.
func (s *Store) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	accountAV, err := attributevalue.MarshalMap(newAccountItem(account))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal account: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.AccountsTableName),
		Item:                accountAV,
		ConditionExpression: aws.String("attribute_not_exists(account_id)"),
	})
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return nil, fmt.Errorf("account %d: %w", account.ID, storage.ErrAccountExists)
		}
		return nil, fmt.Errorf("failed to create account in DynamoDB: %w", err)
	}
	return account, nil
}

// IncrementBalance adds amount to the stored balance in a single UpdateItem and returns
// the balance written by that update. Concurrent increments never overwrite each other.
func (s *Store) IncrementBalance(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, storage.ErrNonPositiveAmount
	}

	input := &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.AccountsTableName),
		Key:                 numberKey("account_id", accountID),
		UpdateExpression:    aws.String("SET balance = balance + :amount, updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(account_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":amount": &types.AttributeValueMemberN{Value: amount.String()},
			":now":    &types.AttributeValueMemberS{Value: formatTimestamp(time.Now())},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	}

	// A transaction write holding the account item, such as the ownership check of a
	// concurrent CreateTransaction, rejects the update without applying it.
	var result *dynamodb.UpdateItemOutput
	var err error
	for attempt := 1; ; attempt++ {
		result, err = s.Client.UpdateItem(ctx, input)
		if err == nil {
			break
		}
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return decimal.Zero, fmt.Errorf("account %d: %w", accountID, storage.ErrNotFound)
		}
		if !isTransactionConflict(err) || attempt == maxConflictAttempts {
			return decimal.Zero, fmt.Errorf("failed to update balance in DynamoDB: %w", err)
		}
		if err := s.waitForRetry(ctx, attempt); err != nil {
			return decimal.Zero, err
		}
	}

	var updated struct {
		Balance attributevalue.Number `dynamodbav:"balance"`
	}
	if err := attributevalue.UnmarshalMap(result.Attributes, &updated); err != nil {
		return decimal.Zero, fmt.Errorf("failed to unmarshal updated balance: %w", err)
	}
	balance, err := decimal.NewFromString(string(updated.Balance))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid balance %q returned for account %d: %w", updated.Balance, accountID, err)
	}
	return balance, nil
}
