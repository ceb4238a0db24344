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

	"github.com/jackc/pgx/v5"
)

// Migrations returns the documents schema migrations
func Migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create documents table",
			Up: func(ctx context.Context, tx pgx.Tx) error {
				_, err := tx.Exec(ctx, `
					CREATE TABLE IF NOT EXISTS documents (
						collection VARCHAR(255) NOT NULL,
						doc_key TEXT NOT NULL,
						body JSONB NOT NULL,
						created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
						updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
						PRIMARY KEY (collection, doc_key)
					)
				`)
				return err
			},
			Down: func(ctx context.Context, tx pgx.Tx) error {
				_, err := tx.Exec(ctx, "DROP TABLE IF EXISTS documents")
				return err
			},
		},
		{
			Version:     2,
			Description: "Index document bodies for secondary index queries",
			Up: func(ctx context.Context, tx pgx.Tx) error {
				_, err := tx.Exec(ctx,
					"CREATE INDEX IF NOT EXISTS idx_documents_body ON documents USING GIN (body jsonb_path_ops)")
				return err
			},
			Down: func(ctx context.Context, tx pgx.Tx) error {
				_, err := tx.Exec(ctx, "DROP INDEX IF EXISTS idx_documents_body")
				return err
			},
		},
	}
}
