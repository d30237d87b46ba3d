package s3

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDDB keeps one item per store_id in memory.
type mockDDB struct {
	items map[string]map[string]ddbtypes.AttributeValue
}

func (m *mockDDB) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.items == nil {
		m.items = make(map[string]map[string]ddbtypes.AttributeValue)
	}
	id := params.Item["store_id"].(*ddbtypes.AttributeValueMemberS).Value
	m.items[id] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDB) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	id := params.Key["store_id"].(*ddbtypes.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: m.items[id]}, nil
}

func TestDDBMetadataStore(t *testing.T) {
	client := &mockDDB{}

	meta := NewDDBMetadataStore(client, "activo-metadata", "store-1")
	require.NoError(t, meta.Init())

	// Fresh store starts at the zero version.
	assert.Equal(t, "", meta.Version())
	assert.Equal(t, 0, meta.Count())

	require.NoError(t, meta.Update("42", 9))
	assert.Equal(t, "42", meta.Version())
	assert.Equal(t, 9, meta.Count())

	// A new instance over the same table reads the persisted record.
	meta2 := NewDDBMetadataStore(client, "activo-metadata", "store-1")
	require.NoError(t, meta2.Init())
	assert.Equal(t, "42", meta2.Version())
	assert.Equal(t, 9, meta2.Count())

	// Other store ids are isolated.
	meta3 := NewDDBMetadataStore(client, "activo-metadata", "store-2")
	require.NoError(t, meta3.Init())
	assert.Equal(t, "", meta3.Version())
}
