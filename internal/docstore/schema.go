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
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Collection names used by the built-in handlers
const (
	CollectionUsers         = "users"
	CollectionAnalytics     = "analytics"
	CollectionConversations = "conversations"
	CollectionDuas          = "duas"
	CollectionQuran         = "quran"
)

// Secondary index names of the built-in collections
const (
	IndexUserTime = "UserTimeIndex"
	IndexCategory = "CategoryIndex"
	IndexLanguage = "LanguageIndex"
)

// IndexSchema describes the key attributes of an index
type IndexSchema struct {
	PartitionKey string `yaml:"partitionKey"`
	SortKey      string `yaml:"sortKey,omitempty"`
}

// Schema describes the key layout of one collection
type Schema struct {
	Name         string                 `yaml:"-"`
	PartitionKey string                 `yaml:"partitionKey"`
	SortKey      string                 `yaml:"sortKey,omitempty"`
	Indexes      map[string]IndexSchema `yaml:"indexes,omitempty"`
}

// Primary returns the primary index of the collection
func (s *Schema) Primary() IndexSchema {
	return IndexSchema{PartitionKey: s.PartitionKey, SortKey: s.SortKey}
}

// Index returns the named index. The empty name is the primary index.
func (s *Schema) Index(name string) (IndexSchema, error) {
	if name == "" {
		return s.Primary(), nil
	}
	index, ok := s.Indexes[name]
	if !ok {
		return IndexSchema{}, fmt.Errorf("%w: %s on %s", ErrUnknownIndex, name, s.Name)
	}
	return index, nil
}

// KeyOf extracts the primary key of item
func (s *Schema) KeyOf(item Item) (Key, error) {
	return s.normalizeKey(Key(item))
}

// normalizeKey keeps only the key attributes and checks they are present
func (s *Schema) normalizeKey(key Key) (Key, error) {
	out := Key{}
	for _, attr := range s.keyAttributes() {
		value, ok := key[attr]
		if !ok || value == nil || value == "" {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingKey, s.Name, attr)
		}
		out[attr] = value
	}
	return out, nil
}

func (s *Schema) keyAttributes() []string {
	if s.SortKey == "" {
		return []string{s.PartitionKey}
	}
	return []string{s.PartitionKey, s.SortKey}
}

// EncodeKey renders a key as an ordered, path-safe string: escaped partition, "/", escaped sort
func (s *Schema) EncodeKey(key Key) (string, error) {
	normalized, err := s.normalizeKey(key)
	if err != nil {
		return "", err
	}
	encoded := PartitionPrefix(normalized[s.PartitionKey])
	if s.SortKey != "" {
		encoded += url.PathEscape(keyString(normalized[s.SortKey]))
	}
	return encoded, nil
}

// PartitionPrefix is the common prefix of every encoded key in a partition
func PartitionPrefix(partition any) string {
	return url.PathEscape(keyString(partition)) + "/"
}

// Validate checks the schema is usable
func (s *Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("collection name is required")
	}
	if s.PartitionKey == "" {
		return fmt.Errorf("collection %s: partition key is required", s.Name)
	}
	for name, index := range s.Indexes {
		if index.PartitionKey == "" {
			return fmt.Errorf("collection %s: index %s: partition key is required", s.Name, name)
		}
	}
	return nil
}

// keyString renders a key attribute so that numerically equal values encode identically
func keyString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		if f, ok := toFloat(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

// Catalog holds the schemas of every known collection
type Catalog struct {
	collections map[string]*Schema
}

type catalogFile struct {
	Collections map[string]*Schema `yaml:"collections"`
}

// NewCatalog creates a catalog from schemas
func NewCatalog(schemas ...*Schema) (*Catalog, error) {
	c := &Catalog{collections: make(map[string]*Schema, len(schemas))}
	for _, schema := range schemas {
		if err := schema.Validate(); err != nil {
			return nil, err
		}
		if _, exists := c.collections[schema.Name]; exists {
			return nil, fmt.Errorf("collection %s defined twice", schema.Name)
		}
		c.collections[schema.Name] = schema
	}
	return c, nil
}

// ParseCatalog parses a YAML collections document
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse collections: %w", err)
	}

	schemas := make([]*Schema, 0, len(file.Collections))
	for name, schema := range file.Collections {
		if schema == nil {
			return nil, fmt.Errorf("collection %s has no schema", name)
		}
		schema.Name = name
		schemas = append(schemas, schema)
	}
	return NewCatalog(schemas...)
}

// LoadCatalog reads a YAML collections file. An empty path yields DefaultCatalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read collections file: %w", err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the schemas used by the built-in handlers
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		&Schema{Name: CollectionUsers, PartitionKey: "userId"},
		&Schema{
			Name:         CollectionAnalytics,
			PartitionKey: "eventId",
			Indexes: map[string]IndexSchema{
				IndexUserTime: {PartitionKey: "userId", SortKey: "timestamp"},
			},
		},
		&Schema{Name: CollectionConversations, PartitionKey: "conversationId", SortKey: "timestamp"},
		&Schema{
			Name:         CollectionDuas,
			PartitionKey: "duaId",
			Indexes: map[string]IndexSchema{
				IndexCategory: {PartitionKey: "category", SortKey: "duaId"},
			},
		},
		&Schema{
			Name:         CollectionQuran,
			PartitionKey: "verseKey",
			Indexes: map[string]IndexSchema{
				IndexLanguage: {PartitionKey: "language", SortKey: "verseKey"},
			},
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Schema returns the schema of a collection
func (c *Catalog) Schema(name string) (*Schema, error) {
	schema, ok := c.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return schema, nil
}

// Names returns the collection names in sorted order
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.collections))
	for name := range c.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
