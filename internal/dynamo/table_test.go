package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAPI fakes the two DynamoDB calls EnsureTable makes.
type stubAPI struct {
	exists       bool
	describeErr  error
	createErr    error
	describeCnt  int
	createCalled bool
}

func (s *stubAPI) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	s.describeCnt++
	if s.describeErr != nil {
		return nil, s.describeErr
	}
	if !s.exists {
		return nil, &types.ResourceNotFoundException{Message: aws.String("not found")}
	}
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{
			TableName:   in.TableName,
			TableStatus: types.TableStatusActive,
		},
	}, nil
}

func (s *stubAPI) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	s.createCalled = true
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.exists = true
	return &dynamodb.CreateTableOutput{}, nil
}

func newTestClient(stub *stubAPI) *Client {
	return &Client{db: stub, table: "raidhelper", attempts: 2, interval: time.Millisecond}
}

func TestEnsureTableCreates(t *testing.T) {
	stub := &stubAPI{exists: false}
	c := newTestClient(stub)

	created, err := c.EnsureTable(context.Background())
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, stub.createCalled)
}

func TestEnsureTableSkipsExisting(t *testing.T) {
	stub := &stubAPI{exists: true}
	c := newTestClient(stub)

	created, err := c.EnsureTable(context.Background())
	require.NoError(t, err)
	assert.False(t, created)
	assert.False(t, stub.createCalled)
}

func TestEnsureTableToleratesCreateRace(t *testing.T) {
	stub := &stubAPI{
		exists:    false,
		createErr: &types.ResourceInUseException{Message: aws.String("being created")},
	}
	c := newTestClient(stub)

	created, err := c.EnsureTable(context.Background())
	require.NoError(t, err)
	assert.False(t, created)
}

func TestEnsureTableRetriesUnreachableEndpoint(t *testing.T) {
	stub := &stubAPI{describeErr: errors.New("connection refused")}
	c := newTestClient(stub)

	_, err := c.EnsureTable(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")
	assert.Equal(t, 2, stub.describeCnt, "existence probe should retry")
}
