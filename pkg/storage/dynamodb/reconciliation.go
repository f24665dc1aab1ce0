package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/payment-webhook-ledger/pkg/models"
)

const statusCreatedAtIndex = "status-created_at-index"

// GetStalePendingTransactions returns pending transactions created more than olderThan ago,
// oldest first. It follows LastEvaluatedKey until the index is exhausted.
func (s *Store) GetStalePendingTransactions(ctx context.Context, olderThan time.Duration) ([]models.Transaction, error) {
	cutoff := formatTimestamp(time.Now().Add(-olderThan))

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.TransactionsTableName),
		IndexName:              aws.String(statusCreatedAtIndex),
		KeyConditionExpression: aws.String("#status = :status AND created_at < :cutoff"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(models.PENDING)},
			":cutoff": &types.AttributeValueMemberS{Value: cutoff},
		},
	}

	var transactions []models.Transaction
	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query for stale pending transactions: %w", err)
		}

		for _, av := range result.Items {
			tx, err := unmarshalTransaction(av)
			if err != nil {
				return nil, err
			}
			transactions = append(transactions, *tx)
		}

		if len(result.LastEvaluatedKey) == 0 {
			return transactions, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}
