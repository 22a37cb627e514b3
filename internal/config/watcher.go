// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watcher reloads the configuration file when it changes on disk.
type Watcher struct {
	path     string
	onChange func(*Config)
	env      LookupEnv
	debounce time.Duration

	watcher  *fsnotify.Watcher
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher prepares a watcher for path. onChange receives every successfully
// reloaded configuration; env overrides are applied again when env is set.
func NewWatcher(path string, env LookupEnv, onChange func(*Config)) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		env:      env,
		debounce: 100 * time.Millisecond,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins watching. The parent directory is watched so editors that
// replace the file by rename are noticed.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err = watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return err
	}
	w.watcher = watcher

	target := filepath.Clean(w.path)
	go func() {
		defer close(w.done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				time.Sleep(w.debounce)
				w.reload()
			case errWatch, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Errorf("config watcher error: %v", errWatch)
			case <-w.stop:
				return
			}
		}
	}()
	return nil
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		log.Errorf("failed to reload config %s: %v", w.path, err)
		return
	}
	if w.env != nil {
		cfg.ApplyEnv(w.env)
	}
	log.Infof("config file changed (%s), reloaded", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Stop ends watching and waits for the watcher goroutine.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		if w.watcher != nil {
			_ = w.watcher.Close()
			<-w.done
		}
	})
}
