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

package functions

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gosayram/fngate/internal/authn"
	"github.com/Gosayram/fngate/internal/docstore"
)

const (
	defaultDuaLimit   = 20
	maxDuaLimit       = 100
	defaultVerseLimit = 10
	maxVerseLimit     = 50
	defaultLanguage   = "en"
	fieldLanguage     = "language"
	fieldVerseText    = "text"
	fieldTranslation  = "translation"
)

// getDuas lists supplications of a category in one language
func (f *Functions) getDuas(ctx context.Context, payload map[string]any, _ authn.AuthContext) (any, error) {
	category, err := requireString(payload, "category")
	if err != nil {
		return nil, err
	}
	language, err := optionalString(payload, "language", defaultLanguage)
	if err != nil {
		return nil, err
	}
	limit, err := optionalInt(payload, "limit", defaultDuaLimit, maxDuaLimit)
	if err != nil {
		return nil, err
	}

	duas, err := f.store.Query(ctx, docstore.CollectionDuas, docstore.Criteria{
		Index:  docstore.IndexCategory,
		Key:    docstore.KeyCondition{Partition: category},
		Filter: []docstore.Condition{docstore.Eq(fieldLanguage, language)},
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get duas: %w", err)
	}

	return map[string]any{"duas": duas}, nil
}

// searchQuran finds verses of one language whose text contains the query, ignoring case
func (f *Functions) searchQuran(ctx context.Context, payload map[string]any, _ authn.AuthContext) (any, error) {
	query, err := requireString(payload, "query")
	if err != nil {
		return nil, err
	}
	language, err := optionalString(payload, "language", defaultLanguage)
	if err != nil {
		return nil, err
	}
	limit, err := optionalInt(payload, "limit", defaultVerseLimit, maxVerseLimit)
	if err != nil {
		return nil, err
	}

	candidates, err := f.store.Query(ctx, docstore.CollectionQuran, docstore.Criteria{
		Index: docstore.IndexLanguage,
		Key:   docstore.KeyCondition{Partition: language},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search quran: %w", err)
	}

	needle := strings.ToLower(query)
	verses := make([]docstore.Item, 0, limit)
	for _, verse := range candidates {
		if verseMatches(verse, needle) {
			verses = append(verses, verse)
			if len(verses) == limit {
				break
			}
		}
	}

	return map[string]any{"verses": verses}, nil
}

func verseMatches(verse docstore.Item, needle string) bool {
	for _, field := range []string{fieldVerseText, fieldTranslation} {
		if s, ok := verse[field].(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}
