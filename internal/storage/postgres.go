// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

const defaultItemTable = "bridge_items"

// PostgresConfig captures configuration required to initialize a Postgres-backed storage.
type PostgresConfig struct {
	DSN    string
	Schema string
	Table  string
}

// Postgres persists session items in a single PostgreSQL table.
type Postgres struct {
	db  *sql.DB
	cfg PostgresConfig
}

// NewPostgres establishes a connection to PostgreSQL and ensures the schema exists.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres storage: DSN is required")
	}
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres storage: open database connection: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres storage: ping database: %w", err)
	}
	s := NewPostgresWithDB(db, cfg)
	if err = s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresWithDB wraps an already opened database handle.
func NewPostgresWithDB(db *sql.DB, cfg PostgresConfig) *Postgres {
	cfg.Schema = strings.TrimSpace(cfg.Schema)
	if strings.TrimSpace(cfg.Table) == "" {
		cfg.Table = defaultItemTable
	}
	return &Postgres{db: db, cfg: cfg}
}

// EnsureSchema creates the item table (and schema when provided).
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres storage: not initialized")
	}
	if s.cfg.Schema != "" {
		query := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quoteIdentifier(s.cfg.Schema))
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("postgres storage: create schema: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, s.fullTableName())); err != nil {
		return fmt.Errorf("postgres storage: create item table: %w", err)
	}
	return nil
}

func (s *Postgres) Name() string { return DriverPostgres }

func (s *Postgres) GetItem(ctx context.Context, key string) (string, bool, error) {
	query := fmt.Sprintf("SELECT content FROM %s WHERE id = $1", s.fullTableName())
	var content string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres storage: get %s: %w", key, err)
	}
	return content, true, nil
}

func (s *Postgres) SetItem(ctx context.Context, key, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id)
		DO UPDATE SET content = EXCLUDED.content, updated_at = NOW()
	`, s.fullTableName())
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("postgres storage: upsert %s: %w", key, err)
	}
	return nil
}

func (s *Postgres) RemoveItem(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.fullTableName())
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("postgres storage: delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Postgres) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Postgres) fullTableName() string {
	if s.cfg.Schema == "" {
		return quoteIdentifier(s.cfg.Table)
	}
	return quoteIdentifier(s.cfg.Schema) + "." + quoteIdentifier(s.cfg.Table)
}

func quoteIdentifier(identifier string) string {
	replaced := strings.ReplaceAll(identifier, "\"", "\"\"")
	return "\"" + replaced + "\""
}
