package dynamo

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-email-service/internal/config"
	"github.com/go-email-service/internal/pkg/logger"
	"go.uber.org/zap"
)

// tableActiveTimeout bounds the wait for a new table to leave CREATING.
const tableActiveTimeout = 2 * time.Minute

type tableAPI interface {
	dynamodb.DescribeTableAPIClient
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, in *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// Bootstrap creates the configured tables if they don't already exist.
// Safe to call on every startup; existing tables are skipped.
func Bootstrap(ctx context.Context, client tableAPI, tables config.DynamoTables, l *zap.Logger) {
	l = logger.OrNop(l)
	if tables.Dispatches == "" {
		return
	}
	ok := createTable(ctx, client, l, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.Dispatches),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(keyDispatchID), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(keyDispatchID), KeyType: types.KeyTypeHash},
		},
	})
	if !ok {
		return
	}
	// TTL can only be set once the table is ACTIVE.
	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tables.Dispatches)}, tableActiveTimeout); err != nil {
		l.Warn("table not active, TTL not enabled", zap.String("table", tables.Dispatches), zap.Error(err))
		return
	}
	enableTTL(ctx, client, l, tables.Dispatches, fieldExpires)
}

// createTable reports whether the table exists afterwards.
func createTable(ctx context.Context, client tableAPI, l *zap.Logger, input *dynamodb.CreateTableInput) bool {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			l.Warn("could not create table", zap.String("table", *input.TableName), zap.Error(err))
			return false
		}
		return true
	}
	l.Info("created table", zap.String("table", *input.TableName))
	return true
}

func enableTTL(ctx context.Context, client tableAPI, l *zap.Logger, tableName, ttlAttr string) {
	_, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(ttlAttr),
		},
	})
	if err != nil {
		l.Warn("could not enable TTL", zap.String("table", tableName), zap.Error(err))
	}
}
