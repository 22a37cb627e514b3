// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cmd wires configuration, storage and the HTTP server into a running
// storefront-bridge service.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/storefront-bridge/internal/api"
	"github.com/traylinx/storefront-bridge/internal/config"
	"github.com/traylinx/storefront-bridge/internal/logging"
	"github.com/traylinx/storefront-bridge/internal/storage"
	"github.com/traylinx/storefront-bridge/internal/util"
)

const shutdownTimeout = 10 * time.Second

// StartService runs the server until SIGINT or SIGTERM.
func StartService(cfg *config.Config, configPath string, sb *util.StateBox) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return Run(ctx, cfg, configPath, sb)
}

// StorageOptions maps the storage section of cfg onto backend options.
func StorageOptions(cfg *config.Config) storage.Options {
	s := cfg.Storage
	return storage.Options{
		Driver:     s.Driver,
		Dir:        s.Dir,
		SQLitePath: s.SQLitePath,
		Postgres: storage.PostgresConfig{
			DSN:    s.Postgres.DSN,
			Schema: s.Postgres.Schema,
			Table:  s.Postgres.Table,
		},
		Object: storage.ObjectConfig{
			Endpoint:  s.Object.Endpoint,
			Bucket:    s.Object.Bucket,
			AccessKey: s.Object.AccessKey,
			SecretKey: s.Object.SecretKey,
			Region:    s.Object.Region,
			Prefix:    s.Object.Prefix,
			UseSSL:    s.Object.UseSSL,
			PathStyle: s.Object.PathStyle,
		},
	}
}

// Run opens the session storage, starts the server and, when configPath is
// set, the config watcher. It returns once ctx is done and the server has
// shut down, or when the server fails.
func Run(ctx context.Context, cfg *config.Config, configPath string, sb *util.StateBox) error {
	backend, err := storage.Open(ctx, sb, StorageOptions(cfg))
	if err != nil {
		return fmt.Errorf("open session storage: %w", err)
	}
	defer func() {
		if errClose := backend.Close(); errClose != nil {
			log.Errorf("close session storage: %v", errClose)
		}
	}()

	if sb != nil {
		if errHarden := util.HardenPermissions(sb); errHarden != nil {
			log.Warnf("permission hardening failed: %v", errHarden)
		}
	}

	srv, err := api.NewServer(cfg, sb, backend)
	if err != nil {
		return err
	}

	if configPath != "" {
		if _, errStat := os.Stat(configPath); errStat == nil {
			watcher := config.NewWatcher(configPath, os.LookupEnv, func(next *config.Config) {
				ApplyLogging(sb, next)
				srv.UpdateConfig(next)
			})
			if errWatch := watcher.Start(); errWatch != nil {
				log.Warnf("config hot reload disabled: %v", errWatch)
			} else {
				defer watcher.Stop()
			}
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = srv.Stop(shutdownCtx); err != nil {
		return err
	}
	if err = <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ApplyLogging applies the level and output settings of cfg.
func ApplyLogging(sb *util.StateBox, cfg *config.Config) {
	logging.SetLevel(cfg.Debug)
	logsDir := ""
	if sb != nil {
		logsDir = sb.LogsDir()
	}
	if err := logging.ConfigureLogOutput(logsDir, cfg.LoggingToFile, cfg.LogsMaxTotalSizeMB); err != nil {
		log.Errorf("configure log output: %v", err)
	}
}
