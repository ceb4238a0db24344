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
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// defaultMaxConns is the default maximum number of connections
	defaultMaxConns = 10
	// defaultMinConns is the default minimum number of connections
	defaultMinConns = 1
	// defaultConnMaxLifetime is the default maximum connection lifetime
	defaultConnMaxLifetime = 5 * time.Minute
	// defaultConnMaxIdleTime is the default maximum idle connection time
	defaultConnMaxIdleTime = 10 * time.Minute
	// defaultPingTimeout is the default timeout for the startup ping
	defaultPingTimeout = 5 * time.Second
	// defaultMigrationTimeout is the default timeout for startup migrations
	defaultMigrationTimeout = 30 * time.Second
)

// PostgresBackend stores documents as JSONB rows of a single documents table
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string
	// MaxConns is the maximum number of connections (default: 10)
	MaxConns int32
	// MinConns is the minimum number of connections (default: 1)
	MinConns int32
	// ConnMaxLifetime is the maximum connection lifetime (default: 5m)
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime is the maximum idle connection time (default: 10m)
	ConnMaxIdleTime time.Duration
	// SkipMigrations leaves the schema untouched at startup
	SkipMigrations bool
}

// NewPostgresPool opens a connection pool and checks connectivity
func NewPostgresPool(ctx context.Context, config PostgresConfig) (*pgxpool.Pool, error) {
	pgxConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pgxConfig.MaxConns = orDefault(config.MaxConns, defaultMaxConns)
	pgxConfig.MinConns = orDefault(config.MinConns, defaultMinConns)
	pgxConfig.MaxConnLifetime = orDefault(config.ConnMaxLifetime, defaultConnMaxLifetime)
	pgxConfig.MaxConnIdleTime = orDefault(config.ConnMaxIdleTime, defaultConnMaxIdleTime)

	pool, err := pgxpool.NewWithConfig(ctx, pgxConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// NewPostgresBackend connects and, unless disabled, applies pending migrations
func NewPostgresBackend(ctx context.Context, config PostgresConfig) (*PostgresBackend, error) {
	pool, err := NewPostgresPool(ctx, config)
	if err != nil {
		return nil, err
	}

	if !config.SkipMigrations {
		migrateCtx, cancel := context.WithTimeout(ctx, defaultMigrationTimeout)
		defer cancel()

		if _, err := NewMigrator(pool, Migrations()).Up(migrateCtx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &PostgresBackend{
		pool: pool,
	}, nil
}

// Name identifies the backend
func (p *PostgresBackend) Name() string {
	return "postgres"
}

// Get retrieves a document by key
func (p *PostgresBackend) Get(ctx context.Context, schema *Schema, key Key) (Item, error) {
	encoded, err := schema.EncodeKey(key)
	if err != nil {
		return nil, err
	}

	var body []byte
	err = p.pool.QueryRow(ctx,
		"SELECT body FROM documents WHERE collection = $1 AND doc_key = $2",
		schema.Name, encoded,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return unmarshalItem(body)
}

// Put stores a document
func (p *PostgresBackend) Put(ctx context.Context, schema *Schema, item Item) error {
	encoded, err := schema.EncodeKey(Key(item))
	if err != nil {
		return err
	}
	body, err := marshalItem(item)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (collection, doc_key, body, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, doc_key) DO UPDATE
		SET body = EXCLUDED.body, updated_at = NOW()
	`
	if _, err := p.pool.Exec(ctx, query, schema.Name, encoded, body); err != nil {
		return fmt.Errorf("failed to put document: %w", err)
	}

	return nil
}

// Query narrows candidates in SQL by partition, then evaluates criteria exactly
func (p *PostgresBackend) Query(ctx context.Context, schema *Schema, criteria Criteria) ([]Item, error) {
	index, err := criteria.Resolve(schema)
	if err != nil {
		return nil, err
	}

	var rows pgx.Rows
	if criteria.Index == "" {
		prefix := PartitionPrefix(criteria.Key.Partition)
		rows, err = p.pool.Query(ctx,
			"SELECT body FROM documents WHERE collection = $1 AND left(doc_key, length($2)) = $2",
			schema.Name, prefix,
		)
	} else {
		rows, err = p.pool.Query(ctx,
			"SELECT body FROM documents WHERE collection = $1 AND body->>$2 = $3",
			schema.Name, index.PartitionKey, keyString(criteria.Key.Partition),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var candidates []Item
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		item, err := unmarshalItem(body)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return selectItems(schema, criteria, candidates)
}

// Close closes the backend
func (p *PostgresBackend) Close() error {
	p.pool.Close()
	return nil
}

// Ping checks if the backend is available
func (p *PostgresBackend) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func orDefault[T comparable](value, fallback T) T {
	var zero T
	if value == zero {
		return fallback
	}
	return value
}
