// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the storefront-bridge server.
// The server keeps a storefront's customer session and cart in step with the
// commerce backend through the bridge cookies the backend writes.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/storefront-bridge/internal/buildinfo"
	"github.com/traylinx/storefront-bridge/internal/cmd"
	"github.com/traylinx/storefront-bridge/internal/config"
	"github.com/traylinx/storefront-bridge/internal/logging"
	"github.com/traylinx/storefront-bridge/internal/util"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = ""
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

// warnCredentialEnv flags connection strings that embed credentials.
func warnCredentialEnv(lookup config.LookupEnv) {
	for _, name := range []string{"PGSTORE_DSN", "OBJECTSTORE_ENDPOINT"} {
		value, ok := lookup(name)
		if !ok || !strings.Contains(value, "://") {
			continue
		}
		userinfo, _, found := strings.Cut(strings.SplitN(value, "://", 2)[1], "@")
		if found && strings.Contains(userinfo, ":") {
			log.Warnf("environment variable %s contains credentials - consider using more secure credential management", name)
		}
	}
}

func main() {
	var (
		configPath  string
		stateDir    string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.StringVar(&stateDir, "state-dir", "", "State directory (default $BRIDGE_STATE_DIR or ~/.storefront-bridge)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(buildinfo.String())
		return
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Errorf("failed to get working directory: %v", err)
		os.Exit(1)
	}

	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}
	warnCredentialEnv(os.LookupEnv)

	sb, err := util.NewStateBoxAt(stateDir)
	if err != nil {
		log.Errorf("failed to resolve state directory: %v", err)
		os.Exit(1)
	}

	optional := configPath == ""
	if optional {
		configPath = filepath.Join(wd, "config.yaml")
	}
	cfg, err := config.LoadConfigOptional(configPath, optional)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		os.Exit(1)
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err = cfg.Validate(); err != nil {
		log.Errorf("invalid config: %v", err)
		os.Exit(1)
	}

	cmd.ApplyLogging(sb, cfg)
	log.Info(buildinfo.String())
	log.Infof("state directory: %s (read-only: %t)", sb.RootPath(), sb.IsReadOnly())

	if err = cmd.StartService(cfg, configPath, sb); err != nil {
		log.Errorf("server stopped: %v", err)
		os.Exit(1)
	}
}
