// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockPostgres(t *testing.T, cfg PostgresConfig) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresWithDB(db, cfg), mock
}

func TestPostgresEnsureSchema(t *testing.T) {
	store, mock := newMockPostgres(t, PostgresConfig{Schema: "bridge"})

	mock.ExpectExec(regexp.QuoteMeta(`CREATE SCHEMA IF NOT EXISTS "bridge"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "bridge"."bridge_items"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestPostgresGetSetRemove(t *testing.T) {
	store, mock := newMockPostgres(t, PostgresConfig{Table: "items"})
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "items" (id, content, updated_at)`)).
		WithArgs("sess/k", "v").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT content FROM "items" WHERE id = $1`)).
		WithArgs("sess/k").
		WillReturnRows(sqlmock.NewRows([]string{"content"}).AddRow("v"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "items" WHERE id = $1`)).
		WithArgs("sess/k").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT content FROM "items" WHERE id = $1`)).
		WithArgs("sess/k").
		WillReturnRows(sqlmock.NewRows([]string{"content"}))

	if err := store.SetItem(ctx, "sess/k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := store.GetItem(ctx, "sess/k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("get = %q, %v, %v", v, ok, err)
	}
	if err = store.RemoveItem(ctx, "sess/k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, err = store.GetItem(ctx, "sess/k"); err != nil || ok {
		t.Fatalf("get after remove = %v, %v", ok, err)
	}
	if err = mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestPostgresWrapsErrors(t *testing.T) {
	store, mock := newMockPostgres(t, PostgresConfig{})
	boom := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT content FROM "bridge_items"`)).WillReturnError(boom)

	_, _, err := store.GetItem(context.Background(), "k")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	if got := quoteIdentifier(`we"ird`); got != `"we""ird"` {
		t.Errorf("quoteIdentifier = %s", got)
	}
}
