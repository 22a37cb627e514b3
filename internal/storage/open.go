// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/traylinx/storefront-bridge/internal/util"
	log "github.com/sirupsen/logrus"
)

// ErrReadOnly is returned by file-system backends when the state directory is read-only.
var ErrReadOnly = util.ErrReadOnlyMode

// Options selects and configures a backend for Open.
type Options struct {
	Driver     string
	Dir        string
	SQLitePath string
	Postgres   PostgresConfig
	Object     ObjectConfig
}

// Open constructs the backend named by opts.Driver. An empty driver selects memory.
func Open(ctx context.Context, sb *util.StateBox, opts Options) (Backend, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	var (
		backend Backend
		err     error
	)
	switch driver {
	case "", DriverMemory:
		backend = NewMemory()
	case DriverFile:
		backend, err = NewFile(sb, opts.Dir)
	case DriverSQLite:
		backend, err = NewSQLite(ctx, sb, opts.SQLitePath)
	case DriverPostgres:
		backend, err = NewPostgres(ctx, opts.Postgres)
	case DriverObject:
		backend, err = NewObject(ctx, opts.Object)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	log.Infof("storage backend initialized: %s", backend.Name())
	return backend, nil
}
