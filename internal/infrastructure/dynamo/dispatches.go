package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-email-service/internal/domain"
)

type dynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DispatchRepo provides typed DynamoDB operations for the dispatches table.
type DispatchRepo struct {
	client    dynamoAPI
	tableName string
}

func NewDispatchRepo(client dynamoAPI, tableName string) *DispatchRepo {
	return &DispatchRepo{client: client, tableName: tableName}
}

func (r *DispatchRepo) Put(ctx context.Context, d *domain.Dispatch) error {
	item, err := attributevalue.MarshalMap(d)
	if err != nil {
		return fmt.Errorf("marshal dispatch: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// MarkResult records the final status of a dispatch. The record must exist.
func (r *DispatchRepo) MarkResult(ctx context.Context, dispatchID, status, reason string) error {
	updates := map[string]interface{}{
		fieldStatus:  status,
		fieldUpdated: time.Now().UTC(),
	}
	if reason != "" {
		updates[fieldError] = reason
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ue.Names["#pk"] = keyDispatchID
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(keyDispatchID, dispatchID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func (r *DispatchRepo) Get(ctx context.Context, dispatchID string) (*domain.Dispatch, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(keyDispatchID, dispatchID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("dispatch %s: %w", dispatchID, domain.ErrNotFound)
	}
	var d domain.Dispatch
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
