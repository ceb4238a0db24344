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

// Package main provides the fngate CLI tool for invoking operations and administering storage.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Gosayram/fngate/internal/app"
	"github.com/Gosayram/fngate/internal/authn"
	"github.com/Gosayram/fngate/internal/config"
	"github.com/Gosayram/fngate/internal/docstore"
	"github.com/Gosayram/fngate/internal/version"
	"github.com/Gosayram/fngate/pkg/sdk"
)

const (
	// defaultClientTimeout is the default timeout for HTTP client requests
	defaultClientTimeout = 30 * time.Second
	// defaultMigrationTimeout bounds one migrate command
	defaultMigrationTimeout = 2 * time.Minute
)

// CLI represents the root CLI structure
type CLI struct {
	ServerURL string `flag:"server" env:"FNGATE_SERVER_URL" default:"http://localhost:8080" help:"fngate server URL"`
	Token     string `flag:"token" env:"FNGATE_TOKEN" help:"Bearer credential"`

	Version    VersionCmd    `cmd:"" help:"Show version information"`
	Invoke     InvokeCmd     `cmd:"" help:"Invoke an operation"`
	Health     HealthCmd     `cmd:"" help:"Check server health"`
	Operations OperationsCmd `cmd:"" help:"List served operations"`
	IssueToken TokenCmd      `cmd:"" name:"issue-token" help:"Issue a bearer credential signed with the configured secret"`
	Migrate    MigrateCmd    `cmd:"" help:"Database migration commands"`
	Seed       SeedCmd       `cmd:"" help:"Load documents from a YAML file into the configured store"`
}

// getClient creates an SDK client from CLI configuration
func (c *CLI) getClient() (*sdk.Client, error) {
	return sdk.NewClient(sdk.Config{
		BaseURL: c.ServerURL,
		Token:   c.Token,
		Timeout: defaultClientTimeout,
	})
}

// readPayload reads a JSON payload from file, inline data, or stdin
func readPayload(file, data string, stdin io.Reader) (map[string]any, error) {
	var raw []byte
	var err error
	switch {
	case file != "":
		//nolint:gosec // file path is controlled by the operator
		raw, err = os.ReadFile(filepath.Clean(file))
	case data != "":
		raw = []byte(data)
	case stdin != nil:
		raw, err = io.ReadAll(stdin)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	return payload, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// VersionCmd shows version information
type VersionCmd struct{}

// Run executes the version command
//
//nolint:unparam // error return is required by kong.Cmd interface
func (v *VersionCmd) Run() error {
	info := version.Info()
	fmt.Println("fngate-cli version", info["version"])
	fmt.Println("commit:", info["commit"])
	fmt.Println("date:", info["date"])
	return nil
}

// InvokeCmd invokes one operation
type InvokeCmd struct {
	CLI       *CLI   `kong:"-"`
	Operation string `arg:"" required:"" help:"Operation name"`
	Data      string `flag:"data" short:"d" help:"Inline JSON payload"`
	File      string `flag:"file" short:"f" help:"Read the JSON payload from a file"`
	Stdin     bool   `flag:"stdin" help:"Read the JSON payload from stdin"`
	Callable  bool   `flag:"callable" help:"Use the callable route"`
}

// Run executes the invoke command
func (i *InvokeCmd) Run() error {
	client, err := i.CLI.getClient()
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	var stdin io.Reader
	if i.Stdin {
		stdin = os.Stdin
	}
	payload, err := readPayload(i.File, i.Data, stdin)
	if err != nil {
		return err
	}

	var out any
	ctx := context.Background()
	if i.Callable {
		err = client.Call(ctx, i.Operation, payload, &out)
	} else {
		err = client.Invoke(ctx, i.Operation, payload, &out)
	}
	if err != nil {
		return fmt.Errorf("invocation failed: %w", err)
	}

	return printJSON(os.Stdout, out)
}

// HealthCmd checks server health
type HealthCmd struct {
	CLI *CLI `kong:"-"`
}

// Run executes the health command
func (h *HealthCmd) Run() error {
	client, err := h.CLI.getClient()
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	health, err := client.Health(context.Background())
	if err != nil {
		return fmt.Errorf("server health check failed: %w", err)
	}

	return printJSON(os.Stdout, health)
}

// OperationsCmd lists served operations
type OperationsCmd struct {
	CLI *CLI `kong:"-"`
}

// Run executes the operations command
func (o *OperationsCmd) Run() error {
	client, err := o.CLI.getClient()
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	ops, err := client.Operations(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list operations: %w", err)
	}

	for _, op := range ops {
		fmt.Println(op)
	}
	return nil
}

// TokenCmd issues a bearer credential
type TokenCmd struct {
	Secret  string        `flag:"secret" env:"FNGATE_JWT_SECRET" required:"" help:"Signing secret"`
	Subject string        `arg:"" required:"" help:"Caller identifier"`
	Email   string        `flag:"email" help:"Email claim"`
	Admin   bool          `flag:"admin" help:"Grant the admin flag"`
	Premium bool          `flag:"premium" help:"Grant the premium flag"`
	TTL     time.Duration `flag:"ttl" help:"Validity window (default: 7 days)"`
}

// Run executes the token command
func (t *TokenCmd) Run() error {
	token, expiresAt, err := t.issue()
	if err != nil {
		return err
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires: %s\n", expiresAt.Format(time.RFC3339))
	return nil
}

func (t *TokenCmd) issue() (string, time.Time, error) {
	issuer, err := authn.NewIssuer([]byte(t.Secret), t.TTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create issuer: %w", err)
	}

	flags := map[string]bool{}
	if t.Admin {
		flags[authn.FlagAdmin] = true
	}
	if t.Premium {
		flags[authn.FlagPremium] = true
	}

	return issuer.Issue(t.Subject, t.Email, flags)
}

// MigrateCmd manages database migrations
type MigrateCmd struct {
	Connection string `flag:"connection" env:"FNGATE_STORAGE_CONNECTION" required:"" help:"PostgreSQL connection string"`

	Up      MigrateUpCmd      `cmd:"" help:"Apply pending migrations"`
	Down    MigrateDownCmd    `cmd:"" help:"Rollback last migration"`
	Version MigrateVersionCmd `cmd:"" help:"Show the applied schema version"`
}

// migrator opens a pool and returns a migrator over the built-in migrations
func migrator(ctx context.Context, connection string) (*docstore.Migrator, func(), error) {
	pool, err := docstore.NewPostgresPool(ctx, docstore.PostgresConfig{ConnectionString: connection})
	if err != nil {
		return nil, nil, err
	}
	return docstore.NewMigrator(pool, docstore.Migrations()), pool.Close, nil
}

// MigrateUpCmd applies pending migrations
type MigrateUpCmd struct {
	Parent *MigrateCmd `kong:"-"`
}

// Run executes the migrate up command
func (m *MigrateUpCmd) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultMigrationTimeout)
	defer cancel()

	mig, closePool, err := migrator(ctx, m.Parent.Connection)
	if err != nil {
		return err
	}
	defer closePool()

	applied, err := mig.Up(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Printf("Applied %d migration(s)\n", applied)
	return nil
}

// MigrateDownCmd rolls back the last migration
type MigrateDownCmd struct {
	Parent *MigrateCmd `kong:"-"`
}

// Run executes the migrate down command
func (m *MigrateDownCmd) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultMigrationTimeout)
	defer cancel()

	mig, closePool, err := migrator(ctx, m.Parent.Connection)
	if err != nil {
		return err
	}
	defer closePool()

	current, err := mig.Down(ctx)
	if err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	fmt.Printf("Rolled back to version %d\n", current)
	return nil
}

// MigrateVersionCmd prints the applied schema version
type MigrateVersionCmd struct {
	Parent *MigrateCmd `kong:"-"`
}

// Run executes the migrate version command
func (m *MigrateVersionCmd) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultMigrationTimeout)
	defer cancel()

	mig, closePool, err := migrator(ctx, m.Parent.Connection)
	if err != nil {
		return err
	}
	defer closePool()

	current, err := mig.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to read version: %w", err)
	}

	fmt.Printf("Schema version %d\n", current)
	return nil
}

// SeedCmd loads documents into a collection
type SeedCmd struct {
	Collection string `arg:"" required:"" help:"Target collection"`
	File       string `arg:"" required:"" type:"existingfile" help:"YAML file holding a list of documents"`
}

// Run executes the seed command against the store selected by FNGATE_STORAGE_* variables
func (s *SeedCmd) Run() error {
	docs, err := loadDocuments(s.File)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := context.Background()
	store, err := app.OpenStore(ctx, cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := seed(ctx, store, s.Collection, docs); err != nil {
		return err
	}

	fmt.Printf("Seeded %d document(s) into %s\n", len(docs), s.Collection)
	return nil
}

// loadDocuments parses a YAML sequence of mappings
func loadDocuments(path string) ([]docstore.Item, error) {
	//nolint:gosec // file path is controlled by the operator
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var docs []map[string]any
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	items := make([]docstore.Item, 0, len(docs))
	for _, doc := range docs {
		items = append(items, docstore.Item(doc))
	}
	return items, nil
}

func seed(ctx context.Context, store docstore.Store, collection string, docs []docstore.Item) error {
	for i, doc := range docs {
		if err := store.Put(ctx, collection, doc); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
	}
	return nil
}
