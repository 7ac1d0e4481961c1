package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrMockDynamoDB is returned by MockDynamoDBClient when ShouldFail is set
var ErrMockDynamoDB = errors.New("mock dynamodb failure")

// MockDynamoDBClient implements DynamoDBAPI for testing
type MockDynamoDBClient struct {
	mu         sync.RWMutex
	items      map[string]map[string]map[string]types.AttributeValue
	ShouldFail bool
}

// NewMockDynamoDBClient creates a new mock DynamoDB client
func NewMockDynamoDBClient() *MockDynamoDBClient {
	return &MockDynamoDBClient{
		items: make(map[string]map[string]map[string]types.AttributeValue),
	}
}

// CreateTable mocks the CreateTable operation
func (m *MockDynamoDBClient) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, ErrMockDynamoDB
	}

	name := *params.TableName
	if _, ok := m.items[name]; !ok {
		m.items[name] = make(map[string]map[string]types.AttributeValue)
	}
	return &dynamodb.CreateTableOutput{}, nil
}

// DescribeTable mocks the DescribeTable operation.
// It reports a missing table so Initialize exercises CreateTable.
func (m *MockDynamoDBClient) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.items[*params.TableName]; !ok {
		return nil, &types.ResourceNotFoundException{}
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

// GetItem mocks the GetItem operation
func (m *MockDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ShouldFail {
		return nil, ErrMockDynamoDB
	}

	if items, ok := m.items[*params.TableName]; ok {
		key := params.Key["key"].(*types.AttributeValueMemberS).Value
		if item, ok := items[key]; ok {
			return &dynamodb.GetItemOutput{Item: item}, nil
		}
	}
	return &dynamodb.GetItemOutput{Item: nil}, nil
}

// PutItem mocks the PutItem operation
func (m *MockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, ErrMockDynamoDB
	}

	name := *params.TableName
	if _, ok := m.items[name]; !ok {
		m.items[name] = make(map[string]map[string]types.AttributeValue)
	}

	key := params.Item["key"].(*types.AttributeValueMemberS).Value
	m.items[name][key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

// DeleteItem mocks the DeleteItem operation
func (m *MockDynamoDBClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, ErrMockDynamoDB
	}

	if items, ok := m.items[*params.TableName]; ok {
		delete(items, params.Key["key"].(*types.AttributeValueMemberS).Value)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

// ItemCount returns the number of items stored in a table
func (m *MockDynamoDBClient) ItemCount(table string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items[table])
}
