package dynamodb

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/payment-webhook-ledger/pkg/models"
	"github.com/shopspring/decimal"
)

// timestampLayout is fixed width so that lexical order of stored timestamps is time order,
// which the created_at range condition on the status index relies on.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// timestamp stores a time as a fixed-width UTC string.
type timestamp time.Time

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func (t timestamp) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberS{Value: formatTimestamp(time.Time(t))}, nil
}

func (t *timestamp) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return fmt.Errorf("timestamp must be a string attribute, got %T", av)
	}
	// RFC3339Nano also accepts the fixed-width layout.
	parsed, err := time.Parse(time.RFC3339Nano, s.Value)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s.Value, err)
	}
	*t = timestamp(parsed.UTC())
	return nil
}

// Monetary values are stored as DynamoDB numbers, which are exact decimals.
// attributevalue.Number carries them without a float round trip.

type accountItem struct {
	AccountID int64                 `dynamodbav:"account_id"`
	UserID    int64                 `dynamodbav:"user_id"`
	Balance   attributevalue.Number `dynamodbav:"balance"`
	Currency  string                `dynamodbav:"currency"`
	CreatedAt timestamp             `dynamodbav:"created_at"`
	UpdatedAt timestamp             `dynamodbav:"updated_at"`
}

func newAccountItem(a *models.Account) accountItem {
	return accountItem{
		AccountID: a.ID,
		UserID:    a.UserID,
		Balance:   attributevalue.Number(a.Balance.String()),
		Currency:  a.Currency,
		CreatedAt: timestamp(a.CreatedAt),
		UpdatedAt: timestamp(a.UpdatedAt),
	}
}

func (i accountItem) toModel() (*models.Account, error) {
	balance, err := decimal.NewFromString(string(i.Balance))
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q for account %d: %w", i.Balance, i.AccountID, err)
	}
	return &models.Account{
		ID:        i.AccountID,
		UserID:    i.UserID,
		Balance:   balance,
		Currency:  i.Currency,
		CreatedAt: time.Time(i.CreatedAt),
		UpdatedAt: time.Time(i.UpdatedAt),
	}, nil
}

// transactionItem is keyed by the provider's transaction ID, so the table itself enforces uniqueness.
type transactionItem struct {
	TransactionID   string                   `dynamodbav:"transaction_id"`
	ID              string                   `dynamodbav:"id"`
	AccountID       int64                    `dynamodbav:"account_id"`
	UserID          int64                    `dynamodbav:"user_id"`
	Amount          attributevalue.Number    `dynamodbav:"amount"`
	Currency        string                   `dynamodbav:"currency"`
	Type            models.TransactionType   `dynamodbav:"type"`
	Status          models.TransactionStatus `dynamodbav:"status"`
	TargetAccountID *int64                   `dynamodbav:"target_account_id,omitempty"`
	Description     string                   `dynamodbav:"description,omitempty"`
	ExternalData    string                   `dynamodbav:"external_data,omitempty"`
	CreatedAt       timestamp                `dynamodbav:"created_at"`
	UpdatedAt       timestamp                `dynamodbav:"updated_at"`
}

func newTransactionItem(tx *models.Transaction) transactionItem {
	return transactionItem{
		TransactionID:   tx.TransactionID,
		ID:              tx.ID,
		AccountID:       tx.AccountID,
		UserID:          tx.UserID,
		Amount:          attributevalue.Number(tx.Amount.String()),
		Currency:        tx.Currency,
		Type:            tx.Type,
		Status:          tx.Status,
		TargetAccountID: tx.TargetAccountID,
		Description:     tx.Description,
		ExternalData:    tx.ExternalData,
		CreatedAt:       timestamp(tx.CreatedAt),
		UpdatedAt:       timestamp(tx.UpdatedAt),
	}
}

func (i transactionItem) toModel() (*models.Transaction, error) {
	amount, err := decimal.NewFromString(string(i.Amount))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q for transaction %s: %w", i.Amount, i.TransactionID, err)
	}
	return &models.Transaction{
		ID:              i.ID,
		TransactionID:   i.TransactionID,
		AccountID:       i.AccountID,
		UserID:          i.UserID,
		Amount:          amount,
		Currency:        i.Currency,
		Type:            i.Type,
		Status:          i.Status,
		TargetAccountID: i.TargetAccountID,
		Description:     i.Description,
		ExternalData:    i.ExternalData,
		CreatedAt:       time.Time(i.CreatedAt),
		UpdatedAt:       time.Time(i.UpdatedAt),
	}, nil
}

func unmarshalTransaction(av map[string]types.AttributeValue) (*models.Transaction, error) {
	var item transactionItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	return item.toModel()
}

func numberKey(name string, id int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", id)},
	}
}
