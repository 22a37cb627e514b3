// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/traylinx/storefront-bridge/internal/util"
)

// SQLite keeps items in a single SQLite database file.
type SQLite struct {
	db   *sql.DB
	path string
}

// NewSQLite opens (creating if needed) the database at dbPath. A bare file name
// is placed in the State Box storage directory.
func NewSQLite(ctx context.Context, sb *util.StateBox, dbPath string) (*SQLite, error) {
	if dbPath == "" {
		dbPath = "bridge.db"
	}
	resolved := dbPath
	if sb != nil {
		if filepath.Base(dbPath) == dbPath {
			resolved = filepath.Join(sb.StorageDir(), dbPath)
		} else {
			resolved = sb.ResolvePath(dbPath)
		}
		if err := sb.EnsureDir(filepath.Dir(resolved)); err != nil {
			return nil, fmt.Errorf("sqlite storage: %w", err)
		}
	}

	dsn := resolved + "?_journal_mode=WAL&_busy_timeout=5000"
	if sb != nil && sb.IsReadOnly() {
		dsn += "&mode=ro"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite storage: open %s: %w", resolved, err)
	}
	s := &SQLite{db: db, path: resolved}
	if sb == nil || !sb.IsReadOnly() {
		if err := s.migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS items (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("sqlite storage: create items table: %w", err)
	}
	return nil
}

func (s *SQLite) Name() string { return DriverSQLite }

// Path returns the resolved database file path.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM items WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite storage: get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) SetItem(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO items (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, key, value)
	if err != nil {
		return fmt.Errorf("sqlite storage: set %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) RemoveItem(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE key = ?", key); err != nil {
		return fmt.Errorf("sqlite storage: remove %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
