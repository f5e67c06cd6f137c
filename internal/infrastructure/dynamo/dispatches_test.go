package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-email-service/internal/config"
	"github.com/go-email-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo records the last input of each call and serves GetItem from item.
type fakeDynamo struct {
	put    *dynamodb.PutItemInput
	update *dynamodb.UpdateItemInput
	item   map[string]types.AttributeValue
	err    error

	created     []string
	ttl         *dynamodb.UpdateTimeToLiveInput
	tableStatus types.TableStatus
	calls       []string
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.put = in
	return &dynamodb.PutItemOutput{}, f.err
}

func (f *fakeDynamo) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.item}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.update = in
	return &dynamodb.UpdateItemOutput{}, f.err
}

func (f *fakeDynamo) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.calls = append(f.calls, "CreateTable")
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, *in.TableName)
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeDynamo) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.calls = append(f.calls, "DescribeTable")
	status := f.tableStatus
	if status == "" {
		status = types.TableStatusActive
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: status,
	}}, nil
}

func (f *fakeDynamo) UpdateTimeToLive(_ context.Context, in *dynamodb.UpdateTimeToLiveInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error) {
	f.calls = append(f.calls, "UpdateTimeToLive")
	f.ttl = in
	return &dynamodb.UpdateTimeToLiveOutput{}, nil
}

func TestDispatchRepo_Put(t *testing.T) {
	f := &fakeDynamo{}
	repo := NewDispatchRepo(f, "dispatches")

	err := repo.Put(context.Background(), &domain.Dispatch{
		DispatchID: "01J",
		Recipient:  "a@b.com",
		Status:     domain.DispatchPending,
	})
	require.NoError(t, err)
	assert.Equal(t, "dispatches", *f.put.TableName)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "01J"}, f.put.Item[keyDispatchID])
	assert.NotContains(t, f.put.Item, fieldError)
	assert.NotContains(t, f.put.Item, fieldExpires)
}

func TestDispatchRepo_MarkResult(t *testing.T) {
	f := &fakeDynamo{}
	repo := NewDispatchRepo(f, "dispatches")

	require.NoError(t, repo.MarkResult(context.Background(), "01J", domain.DispatchFailed, "550 mailbox unavailable"))

	assert.Equal(t, strKey(keyDispatchID, "01J"), f.update.Key)
	assert.Equal(t, "attribute_exists(#pk)", *f.update.ConditionExpression)
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", *f.update.UpdateExpression)
	assert.Equal(t, fieldError, f.update.ExpressionAttributeNames["#f0"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: domain.DispatchFailed}, f.update.ExpressionAttributeValues[":v1"])
}

func TestDispatchRepo_MarkResult_NoReason(t *testing.T) {
	f := &fakeDynamo{}
	repo := NewDispatchRepo(f, "dispatches")

	require.NoError(t, repo.MarkResult(context.Background(), "01J", domain.DispatchSent, ""))
	assert.NotContains(t, f.update.ExpressionAttributeNames, "#f2")
	for _, name := range f.update.ExpressionAttributeNames {
		assert.NotEqual(t, fieldError, name)
	}
}

func TestDispatchRepo_Get(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	item, err := attributevalue.MarshalMap(domain.Dispatch{
		DispatchID: "01J",
		Recipient:  "a@b.com",
		Status:     domain.DispatchSent,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	require.NoError(t, err)

	repo := NewDispatchRepo(&fakeDynamo{item: item}, "dispatches")
	d, err := repo.Get(context.Background(), "01J")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", d.Recipient)
	assert.Equal(t, domain.DispatchSent, d.Status)
	assert.True(t, now.Equal(d.CreatedAt))
}

func TestDispatchRepo_Get_NotFound(t *testing.T) {
	repo := NewDispatchRepo(&fakeDynamo{}, "dispatches")
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDispatchRepo_Get_ClientError(t *testing.T) {
	boom := errors.New("throttled")
	repo := NewDispatchRepo(&fakeDynamo{err: boom}, "dispatches")
	_, err := repo.Get(context.Background(), "01J")
	assert.ErrorIs(t, err, boom)
}

func TestBootstrap_CreatesDispatchTableWithTTL(t *testing.T) {
	f := &fakeDynamo{}
	Bootstrap(context.Background(), f, config.DynamoTables{Dispatches: "dispatches"}, nil)

	assert.Equal(t, []string{"dispatches"}, f.created)
	assert.Equal(t, []string{"CreateTable", "DescribeTable", "UpdateTimeToLive"}, f.calls)
	require.NotNil(t, f.ttl)
	assert.Equal(t, fieldExpires, *f.ttl.TimeToLiveSpecification.AttributeName)
}

func TestBootstrap_DisabledWithoutTableName(t *testing.T) {
	f := &fakeDynamo{}
	Bootstrap(context.Background(), f, config.DynamoTables{}, nil)
	assert.Empty(t, f.created)
	assert.Nil(t, f.ttl)
}

func TestBootstrap_ExistingTable(t *testing.T) {
	f := &fakeDynamo{err: &types.ResourceInUseException{}}
	Bootstrap(context.Background(), f, config.DynamoTables{Dispatches: "dispatches"}, nil)
	assert.Empty(t, f.created)
	assert.NotNil(t, f.ttl)
}

func TestBootstrap_NoTTLUntilTableActive(t *testing.T) {
	f := &fakeDynamo{tableStatus: types.TableStatusCreating}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	Bootstrap(ctx, f, config.DynamoTables{Dispatches: "dispatches"}, nil)
	assert.Contains(t, f.calls, "DescribeTable")
	assert.Nil(t, f.ttl)
}

func TestBootstrap_CreateFailureSkipsTTL(t *testing.T) {
	f := &fakeDynamo{err: errors.New("access denied")}
	Bootstrap(context.Background(), f, config.DynamoTables{Dispatches: "dispatches"}, nil)
	assert.Equal(t, []string{"CreateTable"}, f.calls)
	assert.Nil(t, f.ttl)
}
