// Copyright 2025 Gosayram Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package docstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondition_Match(t *testing.T) {
	item := Item{
		"name":  "Ayat al-Kursi",
		"count": float64(7),
		"tags":  []any{"protection", "night"},
		"preferences": map[string]any{
			"notifications": true,
		},
	}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"eq string", Eq("name", "Ayat al-Kursi"), true},
		{"eq int against float", Eq("count", 7), true},
		{"eq missing", Eq("missing", "x"), false},
		{"ne different", Ne("count", 8), true},
		{"ne missing", Ne("missing", 8), true},
		{"ne same", Ne("count", 7), false},
		{"lt", Lt("count", 8), true},
		{"le", Le("count", 7), true},
		{"gt", Gt("count", 7), false},
		{"ge", Ge("count", 7), true},
		{"lt mixed types", Lt("name", 8), false},
		{"between", Between("count", 1, 7), true},
		{"between outside", Between("count", 8, 9), false},
		{"begins_with", BeginsWith("name", "Ayat"), true},
		{"begins_with number", BeginsWith("count", "7"), false},
		{"exists", Exists("name"), true},
		{"exists missing", Exists("missing"), false},
		{"contains substring", Contains("name", "Kursi"), true},
		{"contains element", Contains("tags", "night"), true},
		{"contains missing element", Contains("tags", "day"), false},
		{"nested path", Eq("preferences.notifications", true), true},
		{"nested missing", Exists("preferences.theme"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.cond.Validate())
			assert.Equal(t, tt.want, tt.cond.Match(item))
		})
	}
}

func TestCondition_Validate(t *testing.T) {
	assert.ErrorIs(t, Condition{Op: OpEq, Values: []any{1}}.Validate(), ErrInvalidCriteria)
	assert.ErrorIs(t, Condition{Field: "a", Op: "regex", Values: []any{1}}.Validate(), ErrInvalidCriteria)
	assert.ErrorIs(t, Condition{Field: "a", Op: OpBetween, Values: []any{1}}.Validate(), ErrInvalidCriteria)
	assert.NoError(t, Exists("a").Validate())
}

func TestSchema_EncodeKey(t *testing.T) {
	schema := &Schema{Name: "conversations", PartitionKey: "conversationId", SortKey: "timestamp"}

	encoded, err := schema.EncodeKey(Key{"conversationId": "a/b", "timestamp": 12})
	require.NoError(t, err)
	assert.Equal(t, "a%2Fb/12", encoded)

	same, err := schema.EncodeKey(Key{"conversationId": "a/b", "timestamp": float64(12)})
	require.NoError(t, err)
	assert.Equal(t, encoded, same)

	_, err = schema.EncodeKey(Key{"conversationId": "a"})
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = schema.EncodeKey(Key{"conversationId": "", "timestamp": 1})
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestParseCatalog(t *testing.T) {
	data := []byte(`
collections:
  users:
    partitionKey: userId
  analytics:
    partitionKey: eventId
    indexes:
      UserTimeIndex:
        partitionKey: userId
        sortKey: timestamp
`)

	catalog, err := ParseCatalog(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"analytics", "users"}, catalog.Names())

	schema, err := catalog.Schema("analytics")
	require.NoError(t, err)
	index, err := schema.Index("UserTimeIndex")
	require.NoError(t, err)
	assert.Equal(t, IndexSchema{PartitionKey: "userId", SortKey: "timestamp"}, index)

	_, err = schema.Index("Other")
	assert.ErrorIs(t, err, ErrUnknownIndex)
}

func TestParseCatalog_Invalid(t *testing.T) {
	_, err := ParseCatalog([]byte("collections:\n  users:\n    sortKey: x\n"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("collections: ["))
	assert.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	catalog, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Contains(t, catalog.Names(), CollectionUsers)

	path := filepath.Join(t.TempDir(), "collections.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collections:\n  things:\n    partitionKey: id\n"), 0o600))

	catalog, err = LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"things"}, catalog.Names())

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
