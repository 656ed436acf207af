package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/opsmith/stackctl/internal/util/retry"
)

// lockKeyAttribute is the hash key Terraform's S3 backend expects on its
// lock table.
const lockKeyAttribute = "LockID"

// DynamoDBAPI is the subset of the DynamoDB client the lock table needs.
type DynamoDBAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
}

// LockTableClient manages the state lock table.
type LockTableClient struct {
	api DynamoDBAPI

	// pollInterval controls how often table status is re-checked while
	// waiting for ACTIVE. Tests shorten it.
	pollInterval time.Duration
	waitTimeout  time.Duration
}

// NewLockTableClient creates a lock table client from an SDK configuration.
func NewLockTableClient(cfg aws.Config) *LockTableClient {
	return NewLockTableClientWithAPI(dynamodb.NewFromConfig(cfg))
}

// NewLockTableClientWithAPI allows injecting a fake API in tests.
func NewLockTableClientWithAPI(api DynamoDBAPI) *LockTableClient {
	return &LockTableClient{
		api:          api,
		pollInterval: 2 * time.Second,
		waitTimeout:  2 * time.Minute,
	}
}

// EnsureTable creates the lock table if absent and waits for it to become
// ACTIVE. An already-existing table is success.
func (c *LockTableClient) EnsureTable(ctx context.Context, name string) error {
	_, err := c.api.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(lockKeyAttribute), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(lockKeyAttribute), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil && !isTableInUse(err) {
		return fmt.Errorf("failed to create lock table %s: %w", name, err)
	}

	err = retry.Poll(ctx, c.pollInterval, c.waitTimeout, func(ctx context.Context) error {
		out, describeErr := c.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
		if describeErr != nil {
			return describeErr
		}
		if out.Table == nil || out.Table.TableStatus != types.TableStatusActive {
			return fmt.Errorf("table %s not active yet", name)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("lock table %s did not become active: %w", name, err)
	}

	return nil
}

// TableExists checks whether the lock table exists.
func (c *LockTableClient) TableExists(ctx context.Context, name string) (bool, error) {
	_, err := c.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	if err != nil {
		if isTableNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to describe lock table %s: %w", name, err)
	}
	return true, nil
}

// DeleteTable removes the lock table. Deleting an absent table is success.
func (c *LockTableClient) DeleteTable(ctx context.Context, name string) error {
	_, err := c.api.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(name)})
	if err != nil && !isTableNotFound(err) {
		return fmt.Errorf("failed to delete lock table %s: %w", name, err)
	}
	return nil
}

func isTableInUse(err error) bool {
	var inUse *types.ResourceInUseException
	return errors.As(err, &inUse)
}

func isTableNotFound(err error) bool {
	var notFound *types.ResourceNotFoundException
	return errors.As(err, &notFound)
}
