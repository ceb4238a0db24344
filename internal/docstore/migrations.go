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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migrationsTableName is the name of the migrations tracking table
const migrationsTableName = "fngate_schema_migrations"

// Migration is one reversible schema change
type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, tx pgx.Tx) error
	Down        func(ctx context.Context, tx pgx.Tx) error
}

// Migrator applies and reverts schema migrations in version order
type Migrator struct {
	pool       *pgxpool.Pool
	migrations []Migration
}

// NewMigrator creates a new migrator
func NewMigrator(pool *pgxpool.Pool, migrations []Migration) *Migrator {
	return &Migrator{
		pool:       pool,
		migrations: migrations,
	}
}

// Migrations returns the registered migrations
func (m *Migrator) Migrations() []Migration {
	return m.migrations
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			description VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, migrationsTableName))
	if err != nil {
		return fmt.Errorf("failed to ensure migrations table: %w", err)
	}
	return nil
}

// Version returns the highest applied migration, 0 when none
func (m *Migrator) Version(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}

	var version *int
	err := m.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT MAX(version) FROM %s", migrationsTableName),
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	if version == nil {
		return 0, nil
	}
	return *version, nil
}

// Up applies all pending migrations and returns how many ran
func (m *Migrator) Up(ctx context.Context) (int, error) {
	current, err := m.Version(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, migration := range m.migrations {
		if migration.Version <= current {
			continue
		}

		err := m.inTx(ctx, func(tx pgx.Tx) error {
			if err := migration.Up(ctx, tx); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				fmt.Sprintf("INSERT INTO %s (version, description) VALUES ($1, $2)", migrationsTableName),
				migration.Version, migration.Description,
			)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
		applied++
	}

	return applied, nil
}

// Down reverts the most recent migration
func (m *Migrator) Down(ctx context.Context) (int, error) {
	current, err := m.Version(ctx)
	if err != nil {
		return 0, err
	}
	if current == 0 {
		return 0, errors.New("no migrations to roll back")
	}

	var target *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == current {
			target = &m.migrations[i]
			break
		}
	}
	if target == nil {
		return current, fmt.Errorf("migration version %d not found", current)
	}
	if target.Down == nil {
		return current, fmt.Errorf("migration %d does not support rollback", current)
	}

	err = m.inTx(ctx, func(tx pgx.Tx) error {
		if err := target.Down(ctx, tx); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE version = $1", migrationsTableName),
			current,
		)
		return err
	})
	if err != nil {
		return current, fmt.Errorf("failed to roll back migration %d: %w", current, err)
	}

	return m.Version(ctx)
}

func (m *Migrator) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		//nolint:errcheck // rollback after commit returns ErrTxClosed
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
