package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-api-verification/internal/pkg/codehash"
	"github.com/go-api-verification/internal/pkg/id"
)

// codeItem is the stored form of a verification code. Only a digest of the
// code is persisted. expires_at is in epoch seconds for native TTL; the
// millisecond copy drives the consume condition.
type codeItem struct {
	Email       string    `dynamodbav:"email"`
	ID          string    `dynamodbav:"id"`
	CodeHash    string    `dynamodbav:"code_hash"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
	ExpiresAt   int64     `dynamodbav:"expires_at"`
	ExpiresAtMs int64     `dynamodbav:"expires_at_ms"`
}

// VerificationRepo stores verification codes.
// PK: email. Each email owns one slot, so a Put replaces any previous code
// and at most one code per email can ever match.
type VerificationRepo struct {
	client    *dynamodb.Client
	tableName string
	hasher    *codehash.Hasher
	now       func() time.Time
}

func NewVerificationRepo(client *dynamodb.Client, tableName string, hasher *codehash.Hasher) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName, hasher: hasher, now: time.Now}
}

func (r *VerificationRepo) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	now := r.now().UTC()
	exp := now.Add(ttl)
	item, err := attributevalue.MarshalMap(codeItem{
		Email:       email,
		ID:          id.New(),
		CodeHash:    r.hasher.Sum(email, code),
		CreatedAt:   now,
		ExpiresAt:   exp.Unix(),
		ExpiresAtMs: exp.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal verification code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *VerificationRepo) InvalidateAll(ctx context.Context, email string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(attrEmail, email),
	})
	return err
}

// ConsumeIfMatch deletes the email's code only if the digest matches and the
// code has not expired. DynamoDB evaluates the condition and the delete as
// one operation, so concurrent callers cannot both succeed.
func (r *VerificationRepo) ConsumeIfMatch(ctx context.Context, email, code string) (bool, error) {
	cond := eqAndAfter(attrCodeHash, r.hasher.Sum(email, code), attrExpiresAtMs, r.now().UnixMilli())
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(attrEmail, email),
		ConditionExpression:       aws.String(cond.Expr),
		ExpressionAttributeNames:  cond.Names,
		ExpressionAttributeValues: cond.Values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
