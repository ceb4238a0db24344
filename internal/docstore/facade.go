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
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"go.uber.org/zap"

	"github.com/Gosayram/fngate/internal/metrics"
)

const (
	// FieldCreatedAt is stamped on the first write of a document
	FieldCreatedAt = "createdAt"
	// FieldUpdatedAt is stamped on every write
	FieldUpdatedAt = "updatedAt"

	statusNotFound = "not_found"
	statusError    = "error"
)

var _ Store = (*Facade)(nil)

// Facade is the Store implementation over a Backend. It holds no per-invocation state
// and is shared by all invocations of the process.
type Facade struct {
	backend Backend
	catalog *Catalog
	logger  *zap.Logger
	now     func() time.Time
}

// FacadeOption configures a Facade
type FacadeOption func(*Facade)

// WithClock sets the clock used to stamp writes
func WithClock(now func() time.Time) FacadeOption {
	return func(f *Facade) {
		f.now = now
	}
}

// NewFacade creates a facade over backend
func NewFacade(backend Backend, catalog *Catalog, logger *zap.Logger, opts ...FacadeOption) *Facade {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	f := &Facade{
		backend: backend,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get retrieves a document. A missing document is reported as false with a nil error;
// backend failures are returned as errors.
func (f *Facade) Get(ctx context.Context, collection string, key Key) (Item, bool, error) {
	start := time.Now()

	schema, err := f.catalog.Schema(collection)
	if err != nil {
		f.record("get", collection, statusError, start)
		return nil, false, err
	}
	normalized, err := schema.normalizeKey(key)
	if err != nil {
		f.record("get", collection, statusError, start)
		return nil, false, err
	}

	item, err := f.backend.Get(ctx, schema, normalized)
	if errors.Is(err, ErrNotFound) {
		f.record("get", collection, statusNotFound, start)
		return nil, false, nil
	}
	if err != nil {
		f.record("get", collection, statusError, start)
		f.logger.Error("Document get failed",
			zap.String("backend", f.backend.Name()),
			zap.String("collection", collection),
			zap.Error(err),
		)
		return nil, false, fmt.Errorf("failed to get document from %s: %w", collection, err)
	}

	f.record("get", collection, metrics.StatusOK, start)
	return item, true, nil
}

// Put creates or replaces a document. updatedAt is always stamped; createdAt only when absent.
// The caller's map is not modified.
func (f *Facade) Put(ctx context.Context, collection string, item Item) error {
	start := time.Now()

	schema, err := f.catalog.Schema(collection)
	if err != nil {
		f.record("put", collection, statusError, start)
		return err
	}
	if _, err := schema.KeyOf(item); err != nil {
		f.record("put", collection, statusError, start)
		return err
	}

	stamped := maps.Clone(item)
	now := f.now().UTC().Format(time.RFC3339)
	if _, ok := stamped[FieldCreatedAt]; !ok {
		stamped[FieldCreatedAt] = now
	}
	stamped[FieldUpdatedAt] = now

	if err := f.backend.Put(ctx, schema, stamped); err != nil {
		f.record("put", collection, statusError, start)
		f.logger.Error("Document put failed",
			zap.String("backend", f.backend.Name()),
			zap.String("collection", collection),
			zap.Error(err),
		)
		return fmt.Errorf("failed to put document to %s: %w", collection, err)
	}

	f.record("put", collection, metrics.StatusOK, start)
	return nil
}

// Query returns documents matching criteria. No match yields an empty, non-nil slice.
func (f *Facade) Query(ctx context.Context, collection string, criteria Criteria) ([]Item, error) {
	start := time.Now()

	schema, err := f.catalog.Schema(collection)
	if err != nil {
		f.record("query", collection, statusError, start)
		return nil, err
	}
	if _, err := criteria.Resolve(schema); err != nil {
		f.record("query", collection, statusError, start)
		return nil, err
	}

	items, err := f.backend.Query(ctx, schema, criteria)
	if err != nil {
		f.record("query", collection, statusError, start)
		f.logger.Error("Document query failed",
			zap.String("backend", f.backend.Name()),
			zap.String("collection", collection),
			zap.String("index", criteria.Index),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	if items == nil {
		items = []Item{}
	}

	f.record("query", collection, metrics.StatusOK, start)
	return items, nil
}

// Ping checks the backend
func (f *Facade) Ping(ctx context.Context) error {
	return f.backend.Ping(ctx)
}

// Close closes the backend
func (f *Facade) Close() error {
	return f.backend.Close()
}

// Catalog returns the collection schemas
func (f *Facade) Catalog() *Catalog {
	return f.catalog
}

func (f *Facade) record(operation, collection, status string, start time.Time) {
	metrics.RecordStoreOperation(operation, collection, status, time.Since(start))
}

// marshalItem encodes a document for byte-oriented backends
func marshalItem(item Item) ([]byte, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

// unmarshalItem decodes a document stored by marshalItem
func unmarshalItem(data []byte) (Item, error) {
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return item, nil
}
