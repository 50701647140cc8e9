// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DeepRecall Authors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnvVars(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestParseEnv_AllFields(t *testing.T) {
	// Arrange
	envVars := map[string]string{
		"CONFIG": "/path/to/config.json",

		// Storage has nested prefixes: STORAGE_ + DB_
		"STORAGE_DB_DSN": "/var/lib/replica/replica.db",

		"REMOTE_HTTP_ADDRESS":    "http://sync.example.com",
		"REMOTE_WS_ADDRESS":      "ws://sync.example.com/subscribe",
		"REMOTE_REQUEST_TIMEOUT": "30s",

		"SYNC_DRAIN_INTERVAL":  "2s",
		"SYNC_BACKOFF_BASE":    "250ms",
		"SYNC_BACKOFF_RETRIES": "6",
	}
	setEnvVars(t, envVars)

	// Act
	cfg := &StructuredConfig{}
	err := parseEnv(cfg)

	// Assert
	require.NoError(t, err)

	assert.Equal(t, "/path/to/config.json", cfg.JSONFilePath)
	assert.Equal(t, "/var/lib/replica/replica.db", cfg.Storage.DB.DSN)
	assert.Equal(t, "http://sync.example.com", cfg.Remote.HTTPAddress)
	assert.Equal(t, "ws://sync.example.com/subscribe", cfg.Remote.WSAddress)
	assert.Equal(t, 30*time.Second, cfg.Remote.RequestTimeout)
	assert.Equal(t, 2*time.Second, cfg.Sync.DrainInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.BackoffBase)
	assert.Equal(t, uint64(6), cfg.Sync.BackoffRetries)
}

func TestParseFlags_AllFields(t *testing.T) {
	cfg := parseFlags([]string{
		"-d", "local.db",
		"-remote-http", "http://remote:9000",
		"-remote-ws", "ws://remote:9000/subscribe",
		"-request-timeout", "10s",
		"-drain-interval", "1s",
		"-backoff-base", "100ms",
		"-backoff-retries", "3",
		"-config", "cfg.json",
	})

	assert.Equal(t, "local.db", cfg.Storage.DB.DSN)
	assert.Equal(t, "http://remote:9000", cfg.Remote.HTTPAddress)
	assert.Equal(t, "ws://remote:9000/subscribe", cfg.Remote.WSAddress)
	assert.Equal(t, 10*time.Second, cfg.Remote.RequestTimeout)
	assert.Equal(t, time.Second, cfg.Sync.DrainInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.Sync.BackoffBase)
	assert.Equal(t, uint64(3), cfg.Sync.BackoffRetries)
	assert.Equal(t, "cfg.json", cfg.JSONFilePath)
}

func TestParseFlags_Empty(t *testing.T) {
	cfg := parseFlags(nil)
	assert.Equal(t, &StructuredConfig{}, cfg)
}

func TestParseJSON_FullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"storage": {"db": {"dsn": "json.db"}},
		"remote": {
			"http_address": "http://json-remote",
			"ws_address": "ws://json-remote/subscribe",
			"request_timeout": "45s"
		},
		"sync": {"drain_interval": "3s", "backoff_base": "1s", "backoff_retries": 2}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := parseJSON(path)
	require.NoError(t, err)

	assert.Equal(t, "json.db", cfg.Storage.DB.DSN)
	assert.Equal(t, "http://json-remote", cfg.Remote.HTTPAddress)
	assert.Equal(t, 45*time.Second, cfg.Remote.RequestTimeout)
	assert.Equal(t, 3*time.Second, cfg.Sync.DrainInterval)
	assert.Equal(t, time.Second, cfg.Sync.BackoffBase)
	assert.Equal(t, uint64(2), cfg.Sync.BackoffRetries)
}

func TestParseJSON_MissingFile(t *testing.T) {
	_, err := parseJSON("/nonexistent/config.json")
	require.Error(t, err)
}

func TestApplyDefaults_FillsUnset(t *testing.T) {
	cfg := &StructuredConfig{}
	cfg.applyDefaults()

	assert.Equal(t, DefaultDSN, cfg.Storage.DB.DSN)
	assert.Equal(t, DefaultHTTPAddress, cfg.Remote.HTTPAddress)
	assert.Equal(t, DefaultWSAddress, cfg.Remote.WSAddress)
	assert.Equal(t, DefaultRequestTimeout, cfg.Remote.RequestTimeout)
	assert.Equal(t, DefaultDrainInterval, cfg.Sync.DrainInterval)
	assert.Equal(t, DefaultBackoffBase, cfg.Sync.BackoffBase)
	assert.Equal(t, uint64(DefaultBackoffRetries), cfg.Sync.BackoffRetries)

	require.NoError(t, cfg.validate())
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &StructuredConfig{}
	cfg.Storage.DB.DSN = "explicit.db"
	cfg.Sync.DrainInterval = time.Minute
	cfg.applyDefaults()

	assert.Equal(t, "explicit.db", cfg.Storage.DB.DSN)
	assert.Equal(t, time.Minute, cfg.Sync.DrainInterval)
}
