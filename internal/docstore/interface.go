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

// Package docstore normalizes get, put and query over schemaless document stores.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by backends when a document does not exist
	ErrNotFound = errors.New("document not found")
	// ErrMissingKey is returned when a document or key lacks a key attribute
	ErrMissingKey = errors.New("missing key attribute")
	// ErrUnknownCollection is returned for collections without a schema
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrUnknownIndex is returned when criteria name an index the collection does not have
	ErrUnknownIndex = errors.New("unknown index")
	// ErrInvalidCriteria is returned for malformed query criteria
	ErrInvalidCriteria = errors.New("invalid query criteria")

	errBackendClosed = errors.New("backend is closed")
)

// Item is a schemaless document
type Item map[string]any

// Key identifies one document: the partition attribute and, when the collection has one, the sort attribute
type Key map[string]any

// Store is the document store seen by handlers
type Store interface {
	// Get returns the document and true, or false with a nil error when it does not exist
	Get(ctx context.Context, collection string, key Key) (Item, bool, error)
	// Put creates or replaces a document
	Put(ctx context.Context, collection string, item Item) error
	// Query returns matching documents, an empty slice when nothing matches
	Query(ctx context.Context, collection string, criteria Criteria) ([]Item, error)
}

// Backend defines the interface for document store backends
type Backend interface {
	// Name identifies the backend in logs
	Name() string
	// Get retrieves a document by key, returning ErrNotFound when absent
	Get(ctx context.Context, schema *Schema, key Key) (Item, error)
	// Put stores a document, replacing any document with the same key
	Put(ctx context.Context, schema *Schema, item Item) error
	// Query returns documents matching criteria, ordered and limited
	Query(ctx context.Context, schema *Schema, criteria Criteria) ([]Item, error)
	// Ping checks if the backend is available
	Ping(ctx context.Context) error
	// Close closes the backend and releases resources
	Close() error
}
