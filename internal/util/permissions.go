// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// AuditResult contains the results of a permission audit for a single file or directory.
type AuditResult struct {
	Path         string      // The file or directory path
	CurrentMode  os.FileMode // The current permission mode
	RequiredMode os.FileMode // The required permission mode
	WasCorrected bool        // Whether permissions were corrected
	Error        error       // Any error encountered during audit or correction
}

// NeedsCorrection reports whether the current mode differs from the required one.
func (r AuditResult) NeedsCorrection() bool {
	return r.Error == nil && r.CurrentMode != r.RequiredMode
}

// requiredMode returns the mode a State Box entry must have, or false when the
// entry is not restricted.
func requiredMode(path string, info os.FileInfo) (os.FileMode, bool) {
	if info.IsDir() {
		return 0o700, true
	}
	if isSensitiveFile(path) {
		return 0o600, true
	}
	return 0, false
}

// walkStateBox calls fn for every restricted entry below the State Box root.
func walkStateBox(sb *StateBox, fn func(AuditResult) AuditResult) ([]AuditResult, error) {
	if sb == nil {
		return nil, fmt.Errorf("StateBox cannot be nil")
	}
	var results []AuditResult
	err := filepath.Walk(sb.RootPath(), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warnf("permission audit: failed to access %s: %v", path, err)
			results = append(results, AuditResult{Path: path, Error: err})
			return nil
		}
		mode, ok := requiredMode(path, info)
		if !ok {
			return nil
		}
		results = append(results, fn(AuditResult{
			Path:         path,
			CurrentMode:  info.Mode().Perm(),
			RequiredMode: mode,
		}))
		return nil
	})
	if err != nil {
		return results, fmt.Errorf("failed to walk State Box directory: %w", err)
	}
	return results, nil
}

// AuditPermissions checks permissions in the State Box without modifying them.
// Directories should have 0700 permissions; session databases, stored items and
// logs should have 0600.
func AuditPermissions(sb *StateBox) ([]AuditResult, error) {
	return walkStateBox(sb, func(r AuditResult) AuditResult {
		if r.NeedsCorrection() {
			log.Debugf("permission audit: %s has mode %04o, requires %04o", r.Path, r.CurrentMode, r.RequiredMode)
		}
		return r
	})
}

// HardenPermissions audits and corrects permissions in the State Box.
// Errors are logged as warnings and processing continues. A missing root or a
// read-only State Box is left alone.
func HardenPermissions(sb *StateBox) error {
	if sb == nil {
		return fmt.Errorf("StateBox cannot be nil")
	}
	if sb.IsReadOnly() {
		log.Debug("permission hardening: skipped in read-only mode")
		return nil
	}
	if _, err := os.Stat(sb.RootPath()); os.IsNotExist(err) {
		log.Warnf("permission hardening: State Box root does not exist: %s", sb.RootPath())
		return nil
	}

	corrected, failed := 0, 0
	_, err := walkStateBox(sb, func(r AuditResult) AuditResult {
		if !r.NeedsCorrection() {
			return r
		}
		if errChmod := os.Chmod(r.Path, r.RequiredMode); errChmod != nil {
			log.Warnf("permission hardening: failed to chmod %s from %04o to %04o: %v",
				r.Path, r.CurrentMode, r.RequiredMode, errChmod)
			r.Error = errChmod
			failed++
			return r
		}
		log.Infof("security audit: corrected permissions for %s from %04o to %04o",
			r.Path, r.CurrentMode, r.RequiredMode)
		r.WasCorrected = true
		corrected++
		return r
	})
	if err != nil {
		return err
	}

	if corrected > 0 {
		log.Infof("permission hardening: corrected %d file/directory permissions", corrected)
	}
	if failed > 0 {
		log.Warnf("permission hardening: encountered %d errors during hardening", failed)
	}
	return nil
}

// isSensitiveFile returns true if the file should have restricted permissions (0600):
// SQLite databases and their journals, file-backed session items and logs.
func isSensitiveFile(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, suffix := range []string{".db", ".db-wal", ".db-shm", ".json", ".log"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
