// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/traylinx/storefront-bridge/internal/util"
)

// fileRecord is the on-disk shape of one item.
type fileRecord struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// File stores every item as its own JSON file under the State Box storage directory.
// Writes use the atomic rename-swap of util.SecureWrite.
type File struct {
	sb  *util.StateBox
	dir string
	mu  sync.RWMutex
}

// NewFile prepares a file backend rooted at dir, or at the State Box storage
// directory when dir is empty.
func NewFile(sb *util.StateBox, dir string) (*File, error) {
	if sb == nil {
		return nil, fmt.Errorf("file storage: state box is required")
	}
	if dir == "" {
		dir = sb.StorageDir()
	} else {
		dir = sb.ResolvePath(dir)
	}
	if err := sb.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("file storage: %w", err)
	}
	return &File{sb: sb, dir: dir}, nil
}

func (f *File) Name() string { return DriverFile }

// Dir returns the directory holding the item files.
func (f *File) Dir() string { return f.dir }

func (f *File) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:])+".json")
}

func (f *File) GetItem(_ context.Context, key string) (string, bool, error) {
	f.mu.RLock()
	data, err := os.ReadFile(f.path(key))
	f.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("file storage: read %s: %w", key, err)
	}
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", false, fmt.Errorf("file storage: decode %s: %w", key, err)
	}
	return rec.Value, true, nil
}

func (f *File) SetItem(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := util.SecureWriteJSON(f.sb, f.path(key), fileRecord{Key: key, Value: value}, nil); err != nil {
		return fmt.Errorf("file storage: write %s: %w", key, err)
	}
	return nil
}

func (f *File) RemoveItem(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := util.SecureRemove(f.sb, f.path(key)); err != nil {
		return fmt.Errorf("file storage: remove %s: %w", key, err)
	}
	return nil
}

func (f *File) Close() error { return nil }
