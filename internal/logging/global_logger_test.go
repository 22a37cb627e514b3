// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFormatterIncludesRequestIDAndSortedFields(t *testing.T) {
	entry := &log.Entry{
		Logger:  log.New(),
		Time:    time.Date(2026, 10, 15, 20, 14, 4, 0, time.UTC),
		Level:   log.WarnLevel,
		Message: "cart refresh failed\n",
		Data: log.Fields{
			RequestIDField: "a1b2c3d4",
			"session":      "s-1",
			"cart":         "c-9",
		},
	}

	out, err := (&LogFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-10-15 20:14:04] [a1b2c3d4] [warn ] cart refresh failed | cart=c-9, session=s-1\n", string(out))
}

func TestLogFormatterWithoutRequestID(t *testing.T) {
	entry := &log.Entry{
		Logger:  log.New(),
		Time:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   log.InfoLevel,
		Message: "listening",
		Data:    log.Fields{},
	}

	out, err := (&LogFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-01-02 03:04:05] [--------] [info ] listening\n", string(out))
}

func TestMaxBackups(t *testing.T) {
	assert.Equal(t, 0, maxBackups(0))
	assert.Equal(t, 1, maxBackups(5))
	assert.Equal(t, 1, maxBackups(20))
	assert.Equal(t, 9, maxBackups(100))
}

func TestConfigureLogOutputToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, ConfigureLogOutput(dir, true, 50))
	t.Cleanup(func() {
		_ = ConfigureLogOutput(dir, false, 0)
	})

	log.Info("written to file")

	data, err := os.ReadFile(filepath.Join(dir, "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
