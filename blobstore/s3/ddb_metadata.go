package s3

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/activo/storage"
)

// DDBClient is the interface for the DynamoDB operations the metadata
// store needs.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DDBMetadataStore implements storage.MetadataStore backed by a
// DynamoDB table, so multiple readers of an object-storage snapshot
// share one durable version record.
//
// Table schema:
//   - Partition key: store_id (string)
//   - Attributes: version (string), doc_count (number)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name activo-metadata \
//	  --attribute-definitions AttributeName=store_id,AttributeType=S \
//	  --key-schema AttributeName=store_id,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
type DDBMetadataStore struct {
	mu        sync.Mutex
	client    DDBClient
	tableName string
	storeID   string
	version   string
	count     int
}

// NewDDBMetadataStore creates a metadata store for one logical
// activity store identified by storeID.
func NewDDBMetadataStore(client DDBClient, tableName, storeID string) *DDBMetadataStore {
	return &DDBMetadataStore{
		client:    client,
		tableName: tableName,
		storeID:   storeID,
	}
}

func (m *DDBMetadataStore) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	out, err := m.client.GetItem(context.Background(), &dynamodb.GetItemInput{
		TableName:      aws.String(m.tableName),
		ConsistentRead: aws.Bool(true),
		Key: map[string]ddbtypes.AttributeValue{
			"store_id": &ddbtypes.AttributeValueMemberS{Value: m.storeID},
		},
	})
	if err != nil {
		return fmt.Errorf("ddb metadata: get: %w", err)
	}
	if out.Item == nil {
		return nil
	}
	if v, ok := out.Item["version"].(*ddbtypes.AttributeValueMemberS); ok {
		m.version = v.Value
	}
	if c, ok := out.Item["doc_count"].(*ddbtypes.AttributeValueMemberN); ok {
		n, err := strconv.Atoi(c.Value)
		if err != nil {
			return fmt.Errorf("ddb metadata: count: %w", err)
		}
		m.count = n
	}
	return nil
}

func (m *DDBMetadataStore) Version() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

func (m *DDBMetadataStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func (m *DDBMetadataStore) Update(version string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.client.PutItem(context.Background(), &dynamodb.PutItemInput{
		TableName: aws.String(m.tableName),
		Item: map[string]ddbtypes.AttributeValue{
			"store_id":  &ddbtypes.AttributeValueMemberS{Value: m.storeID},
			"version":   &ddbtypes.AttributeValueMemberS{Value: version},
			"doc_count": &ddbtypes.AttributeValueMemberN{Value: strconv.Itoa(count)},
		},
	})
	if err != nil {
		return fmt.Errorf("ddb metadata: put: %w", err)
	}
	m.version = version
	m.count = count
	return nil
}

var _ storage.MetadataStore = (*DDBMetadataStore)(nil)
