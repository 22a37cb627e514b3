// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/traylinx/storefront-bridge/internal/auth"
	"github.com/traylinx/storefront-bridge/internal/buildinfo"
	"github.com/traylinx/storefront-bridge/internal/storage"
	"github.com/traylinx/storefront-bridge/internal/util"
)

// StateBoxStatus represents the state directory and storage status for API responses.
type StateBoxStatus struct {
	Build            buildinfo.Info `json:"build"`
	RootPath         string         `json:"root_path,omitempty"`
	ReadOnly         bool           `json:"read_only"`
	Initialized      bool           `json:"initialized"`
	StorageDriver    string         `json:"storage_driver"`
	StorageFile      *FileStatus    `json:"storage_file,omitempty"`
	EventSessions    int            `json:"event_sessions"`
	PermissionStatus string         `json:"permission_status"` // "ok", "warning", "error"
	Warnings         []string       `json:"warnings,omitempty"`
	Errors           []string       `json:"errors,omitempty"`
}

// FileStatus represents the status of a file or directory under the state directory.
type FileStatus struct {
	Path    string    `json:"path"`
	Exists  bool      `json:"exists"`
	Size    int64     `json:"size"`
	Mode    string    `json:"mode"`
	ModTime time.Time `json:"mod_time,omitempty"`
}

func getFileStatus(path string) *FileStatus {
	status := &FileStatus{Path: path}
	info, err := os.Stat(path)
	if err != nil {
		return status
	}
	status.Exists = true
	status.Size = info.Size()
	status.Mode = info.Mode().String()
	status.ModTime = info.ModTime()
	return status
}

// storagePath returns the on-disk location of file-system backends.
func storagePath(backend storage.Backend) string {
	switch b := backend.(type) {
	case *storage.SQLite:
		return b.Path()
	case *storage.File:
		return b.Dir()
	}
	return ""
}

// StateBoxStatusHandler returns a handler for /v0/management/status.
func StateBoxStatusHandler(sb *util.StateBox, backend storage.Backend, bus *auth.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := &StateBoxStatus{
			Build:            buildinfo.Current(),
			StorageDriver:    backend.Name(),
			EventSessions:    bus.Sessions(),
			PermissionStatus: "ok",
		}

		if sb != nil {
			status.RootPath = sb.RootPath()
			status.ReadOnly = sb.IsReadOnly()
			status.Initialized = true
			if _, err := os.Stat(sb.RootPath()); err != nil {
				if os.IsNotExist(err) {
					status.Warnings = append(status.Warnings, "state directory does not exist")
					status.PermissionStatus = "warning"
				} else {
					status.Errors = append(status.Errors, "failed to access state directory")
					status.PermissionStatus = "error"
				}
			}
		}

		if path := storagePath(backend); path != "" {
			status.StorageFile = getFileStatus(path)
		}

		if status.Initialized && status.PermissionStatus == "ok" {
			results, err := util.AuditPermissions(sb)
			if err != nil {
				status.Errors = append(status.Errors, "permission audit failed")
				status.PermissionStatus = "error"
			}
			for _, r := range results {
				if !r.NeedsCorrection() {
					continue
				}
				// Session storage holds customer tokens.
				status.Warnings = append(status.Warnings, fmt.Sprintf("%s has mode %04o, expected %04o", r.Path, r.CurrentMode, r.RequiredMode))
				if status.PermissionStatus == "ok" {
					status.PermissionStatus = "warning"
				}
			}
		}

		c.JSON(http.StatusOK, status)
	}
}
