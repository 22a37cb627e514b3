// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func newTestStateBox(t *testing.T, readOnly bool) *StateBox {
	t.Helper()
	if readOnly {
		t.Setenv("BRIDGE_READONLY", "1")
	} else {
		t.Setenv("BRIDGE_READONLY", "")
	}
	sb, err := NewStateBoxAt(t.TempDir())
	if err != nil {
		t.Fatalf("NewStateBoxAt() failed: %v", err)
	}
	return sb
}

func TestSecureWrite_SuccessfulWrite(t *testing.T) {
	sb := newTestStateBox(t, false)
	testFile := filepath.Join(sb.RootPath(), "test.txt")

	if err := SecureWrite(sb, testFile, []byte("test content"), nil); err != nil {
		t.Fatalf("SecureWrite() failed: %v", err)
	}

	content, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != "test content" {
		t.Errorf("Expected content %q, got %q", "test content", content)
	}

	entries, err := os.ReadDir(sb.RootPath())
	if err != nil {
		t.Fatalf("Failed to read directory: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != "test.txt" {
			t.Errorf("Unexpected file in directory: %s", entry.Name())
		}
	}
}

func TestSecureWrite_ReadOnlyMode(t *testing.T) {
	sb := newTestStateBox(t, true)
	testFile := filepath.Join(sb.RootPath(), "test.txt")

	if err := SecureWrite(sb, testFile, []byte("x"), nil); err != ErrReadOnlyMode {
		t.Errorf("Expected ErrReadOnlyMode, got %v", err)
	}
	if _, err := os.Stat(testFile); !os.IsNotExist(err) {
		t.Error("File should not exist in read-only mode")
	}
}

func TestSecureWrite_Permissions(t *testing.T) {
	sb := newTestStateBox(t, false)
	testFile := filepath.Join(sb.RootPath(), "perm.txt")

	if err := SecureWrite(sb, testFile, []byte("x"), &SecureWriteOptions{Permissions: 0640}); err != nil {
		t.Fatalf("SecureWrite() failed: %v", err)
	}
	info, err := os.Stat(testFile)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0640 {
		t.Errorf("Expected 0640, got %o", info.Mode().Perm())
	}
}

func TestSecureWriteJSON_SuccessfulWrite(t *testing.T) {
	sb := newTestStateBox(t, false)
	testFile := filepath.Join(sb.RootPath(), "nested", "record.json")

	record := map[string]string{"key": "k", "value": "v"}
	if err := SecureWriteJSON(sb, testFile, record, nil); err != nil {
		t.Fatalf("SecureWriteJSON() failed: %v", err)
	}

	data, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("written file is not valid JSON: %v", err)
	}
	if decoded["value"] != "v" {
		t.Errorf("Expected value v, got %q", decoded["value"])
	}
}

func TestSecureRemove(t *testing.T) {
	sb := newTestStateBox(t, false)
	testFile := filepath.Join(sb.RootPath(), "gone.txt")
	if err := os.WriteFile(testFile, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := SecureRemove(sb, testFile); err != nil {
		t.Fatalf("SecureRemove() failed: %v", err)
	}
	if err := SecureRemove(sb, testFile); err != nil {
		t.Errorf("removing a missing file should succeed, got %v", err)
	}
}

func TestSecureWrite_NilStateBox(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "nil.txt")
	if err := SecureWrite(nil, testFile, []byte("x"), nil); err != nil {
		t.Fatalf("SecureWrite() with nil StateBox failed: %v", err)
	}
}
