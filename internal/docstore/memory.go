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
	"sync"
)

// MemoryBackend keeps encoded documents in process memory
type MemoryBackend struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
	closed      bool
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		collections: make(map[string]map[string][]byte),
	}
}

// Name identifies the backend
func (m *MemoryBackend) Name() string {
	return "memory"
}

// Get retrieves a document by key
//
//nolint:revive // ctx parameter is required by Backend interface
func (m *MemoryBackend) Get(ctx context.Context, schema *Schema, key Key) (Item, error) {
	encoded, err := schema.EncodeKey(key)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, errBackendClosed
	}
	data, ok := m.collections[schema.Name][encoded]
	if !ok {
		return nil, ErrNotFound
	}
	return unmarshalItem(data)
}

// Put stores a document
//
//nolint:revive // ctx parameter is required by Backend interface
func (m *MemoryBackend) Put(ctx context.Context, schema *Schema, item Item) error {
	encoded, err := schema.EncodeKey(Key(item))
	if err != nil {
		return err
	}
	data, err := marshalItem(item)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errBackendClosed
	}
	collection, ok := m.collections[schema.Name]
	if !ok {
		collection = make(map[string][]byte)
		m.collections[schema.Name] = collection
	}
	collection[encoded] = data
	return nil
}

// Query scans the collection
//
//nolint:revive // ctx parameter is required by Backend interface
func (m *MemoryBackend) Query(ctx context.Context, schema *Schema, criteria Criteria) ([]Item, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, errBackendClosed
	}
	candidates := make([]Item, 0, len(m.collections[schema.Name]))
	for _, data := range m.collections[schema.Name] {
		item, err := unmarshalItem(data)
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		candidates = append(candidates, item)
	}
	m.mu.RUnlock()

	return selectItems(schema, criteria, candidates)
}

// Ping checks if the backend is available
func (m *MemoryBackend) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errBackendClosed
	}
	return nil
}

// Close releases the documents
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.collections = nil
	return nil
}
