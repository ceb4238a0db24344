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
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	backend := NewMemoryBackend()
	t.Cleanup(func() { _ = backend.Close() })
	return NewFacade(backend, DefaultCatalog(), nil, WithClock(func() time.Time { return fixedNow }))
}

func TestFacade_GetAbsent(t *testing.T) {
	facade := newTestFacade(t)

	item, found, err := facade.Get(context.Background(), CollectionUsers, Key{"userId": "nobody"})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, item)
}

func TestFacade_PutStampsTimestamps(t *testing.T) {
	facade := newTestFacade(t)
	ctx := context.Background()

	input := Item{"userId": "u1", "email": "a@example.com"}
	require.NoError(t, facade.Put(ctx, CollectionUsers, input))
	assert.NotContains(t, input, FieldCreatedAt, "caller's item must not be modified")

	item, found, err := facade.Get(ctx, CollectionUsers, Key{"userId": "u1"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2025-03-01T12:00:00Z", item[FieldCreatedAt])
	assert.Equal(t, "2025-03-01T12:00:00Z", item[FieldUpdatedAt])
	assert.Equal(t, "a@example.com", item["email"])
}

func TestFacade_PutKeepsCreatedAt(t *testing.T) {
	facade := newTestFacade(t)
	ctx := context.Background()

	require.NoError(t, facade.Put(ctx, CollectionUsers, Item{"userId": "u1", FieldCreatedAt: "2020-01-01T00:00:00Z"}))

	item, _, err := facade.Get(ctx, CollectionUsers, Key{"userId": "u1"})
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01T00:00:00Z", item[FieldCreatedAt])
	assert.Equal(t, "2025-03-01T12:00:00Z", item[FieldUpdatedAt])
}

func TestFacade_PutReplaces(t *testing.T) {
	facade := newTestFacade(t)
	ctx := context.Background()

	require.NoError(t, facade.Put(ctx, CollectionUsers, Item{"userId": "u1", "a": "x"}))
	require.NoError(t, facade.Put(ctx, CollectionUsers, Item{"userId": "u1", "b": "y"}))

	item, _, err := facade.Get(ctx, CollectionUsers, Key{"userId": "u1"})
	require.NoError(t, err)
	assert.NotContains(t, item, "a")
	assert.Equal(t, "y", item["b"])
}

func TestFacade_PutMissingKey(t *testing.T) {
	facade := newTestFacade(t)

	err := facade.Put(context.Background(), CollectionUsers, Item{"email": "a@example.com"})
	assert.ErrorIs(t, err, ErrMissingKey)

	err = facade.Put(context.Background(), CollectionConversations, Item{"conversationId": "c1"})
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestFacade_UnknownCollection(t *testing.T) {
	facade := newTestFacade(t)
	ctx := context.Background()

	_, _, err := facade.Get(ctx, "nope", Key{"id": "1"})
	assert.ErrorIs(t, err, ErrUnknownCollection)
	assert.ErrorIs(t, facade.Put(ctx, "nope", Item{"id": "1"}), ErrUnknownCollection)
	_, err = facade.Query(ctx, "nope", Criteria{Key: KeyCondition{Partition: "1"}})
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestFacade_QueryEmpty(t *testing.T) {
	facade := newTestFacade(t)

	items, err := facade.Query(context.Background(), CollectionAnalytics, Criteria{
		Index: "UserTimeIndex",
		Key:   KeyCondition{Partition: "nobody"},
	})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestFacade_QueryIndexDescendingLimit(t *testing.T) {
	facade := newTestFacade(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, facade.Put(ctx, CollectionAnalytics, Item{
			"eventId":   fmt.Sprintf("e%d", i),
			"userId":    "u1",
			"timestamp": 1000 + i,
		}))
	}
	require.NoError(t, facade.Put(ctx, CollectionAnalytics, Item{"eventId": "other", "userId": "u2", "timestamp": 9999}))
	require.NoError(t, facade.Put(ctx, CollectionAnalytics, Item{"eventId": "untimed", "userId": "u1"}))

	items, err := facade.Query(ctx, CollectionAnalytics, Criteria{
		Index:      "UserTimeIndex",
		Key:        KeyCondition{Partition: "u1"},
		Descending: true,
		Limit:      3,
	})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "e4", items[0]["eventId"])
	assert.Equal(t, "e3", items[1]["eventId"])
	assert.Equal(t, "e2", items[2]["eventId"])
}

func TestFacade_QueryLimitAfterFilter(t *testing.T) {
	facade := newTestFacade(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		role := "assistant"
		if i%2 == 0 {
			role = "user"
		}
		require.NoError(t, facade.Put(ctx, CollectionConversations, Item{
			"conversationId": "c1",
			"timestamp":      i,
			"role":           role,
		}))
	}

	items, err := facade.Query(ctx, CollectionConversations, Criteria{
		Key:    KeyCondition{Partition: "c1"},
		Filter: []Condition{Eq("role", "user")},
		Limit:  3,
	})
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, "user", item["role"])
		assert.EqualValues(t, i*2, item["timestamp"])
	}
}

func TestFacade_QuerySortCondition(t *testing.T) {
	facade := newTestFacade(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, facade.Put(ctx, CollectionConversations, Item{"conversationId": "c1", "timestamp": i}))
	}

	cond := Between("", 1, 3)
	items, err := facade.Query(ctx, CollectionConversations, Criteria{
		Key: KeyCondition{Partition: "c1", Sort: &cond},
	})
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestFacade_QueryInvalidCriteria(t *testing.T) {
	facade := newTestFacade(t)
	ctx := context.Background()

	_, err := facade.Query(ctx, CollectionAnalytics, Criteria{Index: "Missing", Key: KeyCondition{Partition: "u1"}})
	assert.ErrorIs(t, err, ErrUnknownIndex)

	_, err = facade.Query(ctx, CollectionUsers, Criteria{})
	assert.ErrorIs(t, err, ErrInvalidCriteria)

	cond := Eq("timestamp", 1)
	_, err = facade.Query(ctx, CollectionUsers, Criteria{Key: KeyCondition{Partition: "u1", Sort: &cond}})
	assert.ErrorIs(t, err, ErrInvalidCriteria)

	_, err = facade.Query(ctx, CollectionUsers, Criteria{
		Key:    KeyCondition{Partition: "u1"},
		Filter: []Condition{{Field: "x", Op: "like", Values: []any{"y"}}},
	})
	assert.ErrorIs(t, err, ErrInvalidCriteria)
}

type failingBackend struct {
	MemoryBackend
}

func (f *failingBackend) Get(context.Context, *Schema, Key) (Item, error) {
	return nil, errors.New("connection refused")
}

func TestFacade_GetFailureIsNotAbsent(t *testing.T) {
	facade := NewFacade(&failingBackend{}, DefaultCatalog(), nil)

	_, found, err := facade.Get(context.Background(), CollectionUsers, Key{"userId": "u1"})
	assert.Error(t, err)
	assert.False(t, found)
	assert.NotErrorIs(t, err, ErrNotFound)
}

// Query never returns more than Limit items and every item satisfies the criteria.
func TestQueryProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		backend := NewMemoryBackend()
		facade := NewFacade(backend, DefaultCatalog(), nil)
		ctx := context.Background()

		n := rapid.IntRange(0, 30).Draw(t, "n")
		for i := 0; i < n; i++ {
			item := Item{
				"eventId":   fmt.Sprintf("e%d", i),
				"userId":    rapid.SampledFrom([]string{"u1", "u2"}).Draw(t, "user"),
				"timestamp": rapid.IntRange(0, 100).Draw(t, "timestamp"),
				"kind":      rapid.SampledFrom([]string{"view", "click"}).Draw(t, "kind"),
			}
			if err := facade.Put(ctx, CollectionAnalytics, item); err != nil {
				t.Fatalf("put: %v", err)
			}
		}

		limit := rapid.IntRange(0, 10).Draw(t, "limit")
		descending := rapid.Bool().Draw(t, "descending")
		items, err := facade.Query(ctx, CollectionAnalytics, Criteria{
			Index:      "UserTimeIndex",
			Key:        KeyCondition{Partition: "u1"},
			Filter:     []Condition{Eq("kind", "view")},
			Descending: descending,
			Limit:      limit,
		})
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if items == nil {
			t.Fatalf("nil result")
		}
		if limit > 0 && len(items) > limit {
			t.Fatalf("got %d items, limit %d", len(items), limit)
		}
		for i, item := range items {
			if item["userId"] != "u1" || item["kind"] != "view" {
				t.Fatalf("item %v does not match", item)
			}
			if i == 0 {
				continue
			}
			prev, _ := toFloat(items[i-1]["timestamp"])
			cur, _ := toFloat(item["timestamp"])
			if (!descending && prev > cur) || (descending && prev < cur) {
				t.Fatalf("items out of order: %v then %v", prev, cur)
			}
		}
	})
}
