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
	"fmt"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	// defaultEtcdDialTimeout is the default timeout for establishing connection to etcd
	defaultEtcdDialTimeout = 5 * time.Second
	// defaultEtcdKeyPrefix is the default prefix for all document keys
	defaultEtcdKeyPrefix = "/fngate/"
)

// EtcdBackend stores documents under <prefix><collection>/<encoded key>
type EtcdBackend struct {
	client         *clientv3.Client
	keyPrefix      string
	requestTimeout time.Duration
	mu             sync.RWMutex
	closed         bool
}

// EtcdConfig holds etcd connection configuration
type EtcdConfig struct {
	// Endpoints is a list of etcd endpoints (e.g., ["localhost:2379"])
	Endpoints []string
	// DialTimeout is the timeout for establishing connection (default: 5s)
	DialTimeout time.Duration
	// RequestTimeout bounds each request; zero leaves the caller's deadline in charge
	RequestTimeout time.Duration
	// KeyPrefix is the prefix for all keys (default: "/fngate/")
	KeyPrefix string
}

// NewEtcdBackend creates a new etcd-based backend
func NewEtcdBackend(ctx context.Context, config EtcdConfig) (*EtcdBackend, error) {
	if len(config.Endpoints) == 0 {
		return nil, fmt.Errorf("at least one etcd endpoint is required")
	}

	dialTimeout := orDefault(config.DialTimeout, defaultEtcdDialTimeout)

	keyPrefix := orDefault(config.KeyPrefix, defaultEtcdKeyPrefix)
	if !strings.HasSuffix(keyPrefix, "/") {
		keyPrefix += "/"
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   config.Endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	statusCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if _, err := client.Status(statusCtx, config.Endpoints[0]); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return newEtcdBackend(client, keyPrefix, config.RequestTimeout), nil
}

func newEtcdBackend(client *clientv3.Client, keyPrefix string, requestTimeout time.Duration) *EtcdBackend {
	return &EtcdBackend{
		client:         client,
		keyPrefix:      keyPrefix,
		requestTimeout: requestTimeout,
	}
}

// Name identifies the backend
func (e *EtcdBackend) Name() string {
	return "etcd"
}

func (e *EtcdBackend) collectionPrefix(schema *Schema) string {
	return e.keyPrefix + schema.Name + "/"
}

func (e *EtcdBackend) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.requestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.requestTimeout)
}

// Get retrieves a document by key
func (e *EtcdBackend) Get(ctx context.Context, schema *Schema, key Key) (Item, error) {
	encoded, err := schema.EncodeKey(key)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, errBackendClosed
	}

	requestCtx, cancel := e.requestContext(ctx)
	defer cancel()

	resp, err := e.client.Get(requestCtx, e.collectionPrefix(schema)+encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return nil, ErrNotFound
	}

	return unmarshalItem(resp.Kvs[0].Value)
}

// Put stores a document
func (e *EtcdBackend) Put(ctx context.Context, schema *Schema, item Item) error {
	encoded, err := schema.EncodeKey(Key(item))
	if err != nil {
		return err
	}
	value, err := marshalItem(item)
	if err != nil {
		return err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return errBackendClosed
	}

	requestCtx, cancel := e.requestContext(ctx)
	defer cancel()

	if _, err := e.client.Put(requestCtx, e.collectionPrefix(schema)+encoded, string(value)); err != nil {
		return fmt.Errorf("failed to put document: %w", err)
	}

	return nil
}

// Query reads a key range and evaluates criteria. Primary index queries read one partition;
// secondary index queries read the whole collection.
func (e *EtcdBackend) Query(ctx context.Context, schema *Schema, criteria Criteria) ([]Item, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, errBackendClosed
	}

	rangeStart := e.collectionPrefix(schema)
	if criteria.Index == "" {
		rangeStart += PartitionPrefix(criteria.Key.Partition)
	}

	requestCtx, cancel := e.requestContext(ctx)
	defer cancel()

	resp, err := e.client.Get(requestCtx, rangeStart, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	candidates := make([]Item, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		item, err := unmarshalItem(kv.Value)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, item)
	}

	return selectItems(schema, criteria, candidates)
}

// Close closes the backend
func (e *EtcdBackend) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.closed = true
	return e.client.Close()
}

// Ping checks if the backend is available
func (e *EtcdBackend) Ping(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return errBackendClosed
	}

	requestCtx, cancel := e.requestContext(ctx)
	defer cancel()

	_, err := e.client.Status(requestCtx, e.client.Endpoints()[0])
	return err
}
