// Package dynamo creates the project's DynamoDB table against LocalStack.
//
// LocalStack speaks the real DynamoDB API, so this is a normal aws-sdk-v2
// client with a base endpoint override and throwaway static credentials.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/raidhelper/devstack/internal/retry"
)

// api is the slice of the DynamoDB client EnsureTable needs; it keeps the
// table logic testable without LocalStack.
type api interface {
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Client manages one table on one endpoint.
type Client struct {
	db    api
	table string

	// Poll settings while LocalStack is still starting up.
	attempts int
	interval time.Duration
}

// New builds a client for the LocalStack endpoint. Credentials are static
// dummies; LocalStack does not verify them.
func New(ctx context.Context, endpoint, region, table string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	db := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &Client{
		db:       db,
		table:    table,
		attempts: 10,
		interval: 2 * time.Second,
	}, nil
}

// EnsureTable creates the table if it does not exist and waits until it is
// active. A table that already exists is a skip (created=false). The
// existence probe retries while LocalStack finishes starting.
func (c *Client) EnsureTable(ctx context.Context) (bool, error) {
	exists, err := c.tableExists(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	_, err = c.db.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(c.table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
	})
	if err != nil {
		// Lost a create race: someone else made it, which is fine.
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create table %s: %w", c.table, err)
	}

	if err := c.waitActive(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// tableExists probes for the table, retrying connection-level failures so
// a LocalStack that is still booting does not fail the command.
func (c *Client) tableExists(ctx context.Context) (bool, error) {
	var exists bool
	err := retry.Do(ctx, c.attempts, c.interval, func() error {
		_, err := c.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(c.table),
		})
		if err == nil {
			exists = true
			return nil
		}

		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			exists = false
			return nil
		}
		return err
	})
	if err != nil {
		return false, fmt.Errorf("dynamodb endpoint not reachable: %w", err)
	}
	return exists, nil
}

func (c *Client) waitActive(ctx context.Context) error {
	waiter := dynamodb.NewTableExistsWaiter(c.db)
	err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(c.table),
	}, time.Duration(c.attempts)*c.interval)
	if err != nil {
		return fmt.Errorf("table %s did not become active: %w", c.table, err)
	}
	return nil
}
