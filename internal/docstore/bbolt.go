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
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

const (
	// defaultDirMode is the default directory permissions (read, write, execute for owner only)
	defaultDirMode = 0o700
	// defaultFileMode is the default file permissions (read, write for owner only)
	defaultFileMode = 0o600
)

// BoltBackend is a bbolt-based backend with one bucket per collection
type BoltBackend struct {
	db *bbolt.DB
}

// NewBoltBackend opens the database at path, creating a bucket for every collection in catalog
func NewBoltBackend(path string, catalog *Catalog) (*BoltBackend, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, defaultDirMode); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bbolt.Open(path, defaultFileMode, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	if catalog != nil {
		err = db.Update(func(tx *bbolt.Tx) error {
			for _, name := range catalog.Names() {
				if _, updateErr := tx.CreateBucketIfNotExists([]byte(name)); updateErr != nil {
					return updateErr
				}
			}
			return nil
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create buckets: %w", err)
		}
	}

	return &BoltBackend{
		db: db,
	}, nil
}

// Name identifies the backend
func (b *BoltBackend) Name() string {
	return "boltdb"
}

// Get retrieves a document by key
//
//nolint:revive // ctx parameter is required by Backend interface
func (b *BoltBackend) Get(ctx context.Context, schema *Schema, key Key) (Item, error) {
	encoded, err := schema.EncodeKey(key)
	if err != nil {
		return nil, err
	}

	var value []byte
	err = b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(schema.Name))
		if bucket == nil {
			return ErrNotFound
		}

		val := bucket.Get([]byte(encoded))
		if val == nil {
			return ErrNotFound
		}

		// Copy the value since it's only valid within the transaction
		value = make([]byte, len(val))
		copy(value, val)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return unmarshalItem(value)
}

// Put stores a document
//
//nolint:revive // ctx parameter is required by Backend interface
func (b *BoltBackend) Put(ctx context.Context, schema *Schema, item Item) error {
	encoded, err := schema.EncodeKey(Key(item))
	if err != nil {
		return err
	}
	value, err := marshalItem(item)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(schema.Name))
		if err != nil {
			return fmt.Errorf("failed to open bucket %s: %w", schema.Name, err)
		}
		return bucket.Put([]byte(encoded), value)
	})
}

// Query reads candidate documents and evaluates criteria. Primary index queries
// only read the partition's key range.
//
//nolint:revive // ctx parameter is required by Backend interface
func (b *BoltBackend) Query(ctx context.Context, schema *Schema, criteria Criteria) ([]Item, error) {
	var prefix []byte
	if criteria.Index == "" {
		prefix = []byte(PartitionPrefix(criteria.Key.Partition))
	}

	var candidates []Item
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(schema.Name))
		if bucket == nil {
			return nil
		}

		c := bucket.Cursor()
		k, v := c.First()
		if len(prefix) > 0 {
			k, v = c.Seek(prefix)
		}
		for ; k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			item, err := unmarshalItem(v)
			if err != nil {
				return err
			}
			candidates = append(candidates, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return selectItems(schema, criteria, candidates)
}

// Close closes the backend
func (b *BoltBackend) Close() error {
	return b.db.Close()
}

// Ping checks if the backend is available
func (b *BoltBackend) Ping(_ context.Context) error {
	return b.db.View(func(_ *bbolt.Tx) error {
		return nil
	})
}
