// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLooseStateBox(t *testing.T) (*StateBox, string, string) {
	t.Helper()
	t.Setenv("BRIDGE_READONLY", "0")
	sb, err := NewStateBoxAt(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(sb.StorageDir(), 0o755))
	require.NoError(t, os.Chmod(sb.StorageDir(), 0o755))
	item := filepath.Join(sb.StorageDir(), "item.json")
	require.NoError(t, os.WriteFile(item, []byte("{}"), 0o644))
	db := filepath.Join(sb.StorageDir(), "bridge.db")
	require.NoError(t, os.WriteFile(db, nil, 0o644))
	for _, f := range []string{item, db} {
		require.NoError(t, os.Chmod(f, 0o644))
	}
	return sb, item, db
}

func TestAuditPermissions(t *testing.T) {
	sb, item, db := newLooseStateBox(t)
	notes := filepath.Join(sb.RootPath(), "README.txt")
	require.NoError(t, os.WriteFile(notes, nil, 0o644))

	results, err := AuditPermissions(sb)
	require.NoError(t, err)

	byPath := make(map[string]AuditResult, len(results))
	for _, r := range results {
		require.NoError(t, r.Error)
		byPath[r.Path] = r
	}
	assert.Equal(t, os.FileMode(0o700), byPath[sb.StorageDir()].RequiredMode)
	assert.True(t, byPath[sb.StorageDir()].NeedsCorrection())
	assert.Equal(t, os.FileMode(0o600), byPath[item].RequiredMode)
	assert.Equal(t, os.FileMode(0o600), byPath[db].RequiredMode)
	assert.NotContains(t, byPath, notes)

	info, err := os.Stat(item)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm(), "audit must not modify")
}

func TestHardenPermissions(t *testing.T) {
	sb, item, db := newLooseStateBox(t)
	require.NoError(t, HardenPermissions(sb))

	for path, want := range map[string]os.FileMode{sb.StorageDir(): 0o700, item: 0o600, db: 0o600} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, want, info.Mode().Perm(), path)
	}

	results, err := AuditPermissions(sb)
	require.NoError(t, err)
	for _, r := range results {
		assert.False(t, r.NeedsCorrection(), r.Path)
	}
}

func TestHardenPermissionsReadOnlySkips(t *testing.T) {
	sb, item, _ := newLooseStateBox(t)
	t.Setenv("BRIDGE_READONLY", "1")
	ro, err := NewStateBoxAt(sb.RootPath())
	require.NoError(t, err)

	require.NoError(t, HardenPermissions(ro))
	info, err := os.Stat(item)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestHardenPermissionsNil(t *testing.T) {
	assert.Error(t, HardenPermissions(nil))
	_, err := AuditPermissions(nil)
	assert.Error(t, err)
}

func TestIsSensitiveFile(t *testing.T) {
	for _, name := range []string{"bridge.db", "bridge.db-wal", "bridge.db-shm", "x.json", "main.log"} {
		assert.True(t, isSensitiveFile(name), name)
	}
	assert.False(t, isSensitiveFile("config.yaml"))
}
