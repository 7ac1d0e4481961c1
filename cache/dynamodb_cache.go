package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/ammiranda/forest_service/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI defines the interface for DynamoDB operations
type DynamoDBAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

const (
	tableName     = "ForestCache"
	generationKey = "generation"
)

// CacheItem is the stored shape of one cache entry. Data holds the JSON
// encoded projections.
type CacheItem struct {
	Key       string `dynamodbav:"key"`
	Data      string `dynamodbav:"data"`
	Timestamp int64  `dynamodbav:"timestamp"`
	TTL       int64  `dynamodbav:"ttl"`
}

// DynamoDBCache implements CacheProvider using DynamoDB.
// Like RedisCache it namespaces entries by a generation token stored in
// its own item.
type DynamoDBCache struct {
	client   DynamoDBAPI
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewDynamoDBCache creates a new DynamoDB cache provider
func NewDynamoDBCache(ctx context.Context, logger *slog.Logger) (*DynamoDBCache, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	return NewDynamoDBCacheWithClient(dynamodb.NewFromConfig(cfg), logger), nil
}

// NewDynamoDBCacheWithClient creates a new DynamoDB cache provider with a custom client
func NewDynamoDBCacheWithClient(client DynamoDBAPI, logger *slog.Logger) *DynamoDBCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &DynamoDBCache{
		client:   client,
		cacheTTL: 5 * time.Minute,
		logger:   logger,
	}
}

// Initialize creates the DynamoDB table if it doesn't exist
func (c *DynamoDBCache) Initialize(ctx context.Context) error {
	// Check if table exists
	_, err := c.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err == nil {
		return nil
	}

	_, err = c.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("key"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("key"),
				KeyType:       types.KeyTypeHash,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	return err
}

func itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"key": &types.AttributeValueMemberS{Value: key},
	}
}

func (c *DynamoDBCache) getItem(ctx context.Context, key string) (*CacheItem, error) {
	result, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(tableName),
		Key:       itemKey(key),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, nil
	}

	var item CacheItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *DynamoDBCache) putItem(ctx context.Context, item CacheItem) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      av,
	})
	return err
}

func (c *DynamoDBCache) generation(ctx context.Context) (string, error) {
	gen, err := c.getItem(ctx, generationKey)
	if err != nil {
		return "", err
	}
	if gen == nil {
		return "0", nil
	}
	return gen.Data, nil
}

// Get retrieves projections from the DynamoDB cache if available
func (c *DynamoDBCache) Get(ctx context.Context, key string) ([]*models.NodeDTO, string, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, "", false
	}
	k := gen + ":" + key

	item, err := c.getItem(ctx, k)
	if err != nil || item == nil {
		return nil, gen, false
	}

	// Check if cache is still valid
	if time.Now().Unix() > item.TTL {
		if _, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(tableName),
			Key:       itemKey(k),
		}); err != nil {
			c.logger.WarnContext(ctx, "error deleting expired cache item", "key", k, "error", err)
		}
		return nil, gen, false
	}

	var nodes []*models.NodeDTO
	if err := json.Unmarshal([]byte(item.Data), &nodes); err != nil {
		return nil, gen, false
	}
	return nodes, gen, true
}

// Set stores projections in the DynamoDB cache under generation gen
func (c *DynamoDBCache) Set(ctx context.Context, gen, key string, nodes []*models.NodeDTO) {
	if gen == "" {
		return
	}
	data, err := json.Marshal(nodes)
	if err != nil {
		return
	}

	k := gen + ":" + key
	now := time.Now()
	err = c.putItem(ctx, CacheItem{
		Key:       k,
		Data:      string(data),
		Timestamp: now.Unix(),
		TTL:       now.Add(c.cacheTTL).Unix(),
	})
	if err != nil {
		c.logger.WarnContext(ctx, "error storing cache item", "key", k, "error", err)
	}
}

// InvalidateCache rotates the generation token
func (c *DynamoDBCache) InvalidateCache(ctx context.Context) {
	now := time.Now()
	err := c.putItem(ctx, CacheItem{
		Key:       generationKey,
		Data:      strconv.FormatInt(now.UnixNano(), 10),
		Timestamp: now.Unix(),
	})
	if err != nil {
		c.logger.WarnContext(ctx, "error invalidating cache", "error", err)
	}
}

// SetCacheTTL sets the cache time-to-live duration
func (c *DynamoDBCache) SetCacheTTL(ttl time.Duration) {
	c.cacheTTL = ttl
}
