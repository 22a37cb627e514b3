// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package buildinfo exposes compile-time metadata shared across the server.
package buildinfo

import "fmt"

// Name is the product name reported in logs, health checks and outbound requests.
const Name = "storefront-bridge"

// The following variables are overridden via ldflags during release builds:
//
//	-X github.com/traylinx/storefront-bridge/internal/buildinfo.Version=v1.2.0
var (
	// Version is the semantic version or git describe output of the binary.
	Version = "dev"

	// Commit is the git commit SHA baked into the binary.
	Commit = "none"

	// BuildDate records when the binary was built in UTC.
	BuildDate = "unknown"
)

// Info is the build metadata as served by the health endpoint.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Current returns the metadata of the running binary.
func Current() Info {
	return Info{Name: Name, Version: Version, Commit: Commit, BuildDate: BuildDate}
}

// String renders the one-line banner logged at startup.
func String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", Name, Version, Commit, BuildDate)
}

// UserAgent is sent on requests to the commerce backend.
func UserAgent() string {
	return Name + "/" + Version
}
