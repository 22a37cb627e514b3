// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package storage provides the durable key-value storage that backs a storefront
// session: the server-side counterpart of the browser's localStorage. Values are
// opaque strings; callers own their encoding.
package storage

import (
	"context"
	"strings"
)

// Storage is a durable string key-value store with localStorage semantics.
// GetItem reports ok=false for missing keys; RemoveItem of a missing key succeeds.
type Storage interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Backend is a Storage owned by the process, with a lifecycle and a driver name.
type Backend interface {
	Storage
	Name() string
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverObject   = "object"
)

// scoped prefixes every key so several sessions can share one backend.
type scoped struct {
	inner  Storage
	prefix string
}

// Scoped returns a view of st whose keys are namespaced by scope.
// Keys written through one scope are invisible to every other scope.
func Scoped(st Storage, scope string) Storage {
	scope = strings.Trim(scope, "/")
	if scope == "" {
		return st
	}
	return &scoped{inner: st, prefix: scope + "/"}
}

func (s *scoped) GetItem(ctx context.Context, key string) (string, bool, error) {
	return s.inner.GetItem(ctx, s.prefix+key)
}

func (s *scoped) SetItem(ctx context.Context, key, value string) error {
	return s.inner.SetItem(ctx, s.prefix+key, value)
}

func (s *scoped) RemoveItem(ctx context.Context, key string) error {
	return s.inner.RemoveItem(ctx, s.prefix+key)
}
