package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		schema  Schema
		wantErr string
	}{
		{
			name: "valid",
			schema: Schema{
				Fields: []FieldDefinition{
					{Name: "likes", Kind: KindInt, Activity: true},
					{Name: "score", Kind: KindFloat, Activity: true},
				},
				Aggregates: []TimeAggregateInfo{{FieldName: "likes", Windows: []string{"5m", "1h"}}},
			},
		},
		{
			name:    "empty name",
			schema:  Schema{Fields: []FieldDefinition{{Name: "", Kind: KindInt}}},
			wantErr: "empty name",
		},
		{
			name:    "unknown kind",
			schema:  Schema{Fields: []FieldDefinition{{Name: "likes", Kind: "double"}}},
			wantErr: "unknown kind",
		},
		{
			name: "duplicate field",
			schema: Schema{Fields: []FieldDefinition{
				{Name: "likes", Kind: KindInt},
				{Name: "likes", Kind: KindLong},
			}},
			wantErr: "duplicate",
		},
		{
			name: "aggregate without windows",
			schema: Schema{
				Fields:     []FieldDefinition{{Name: "likes", Kind: KindInt}},
				Aggregates: []TimeAggregateInfo{{FieldName: "likes"}},
			},
			wantErr: "no windows",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.schema.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	doc := `{
		"fields": [
			{"name": "likes", "kind": "int", "activity": true},
			{"name": "ts", "kind": "long", "activity": true}
		],
		"aggregates": [
			{"field": "likes", "windows": ["5m", "15m"]}
		]
	}`

	s, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	require.Len(t, s.Fields, 2)
	assert.Equal(t, "likes", s.Fields[0].Name)
	assert.Equal(t, KindLong, s.Fields[1].Kind)
	require.Len(t, s.Aggregates, 1)
	assert.Equal(t, []string{"5m", "15m"}, s.Aggregates[0].Windows)
}

func TestLoadUnknownField(t *testing.T) {
	_, err := Load(strings.NewReader(`{"fields": [], "bogus": true}`))
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fields":[{"name":"likes","kind":"int","activity":true}]}`), 0600))

	s, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, s.Fields, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
