// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DeepRecall Authors

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the
// replication engine. It aggregates all sub-configurations and is populated
// by merging values from environment variables, command-line flags, and an
// optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// Storage holds configuration for the local durable store.
	Storage Storage `envPrefix:"STORAGE_"`

	// Remote holds addresses and timeouts for the remote store transport.
	Remote Remote `envPrefix:"REMOTE_"`

	// Sync holds the write buffer's drain and backoff settings.
	Sync Sync `envPrefix:"SYNC_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// Storage groups the configuration for the persistence layer.
type Storage struct {
	// DB holds the local SQLite settings.
	DB LocalDB `envPrefix:"DB_"`
}

// LocalDB contains local database connection settings.
type LocalDB struct {
	// DSN is the SQLite file path (or ":memory:").
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Remote holds network settings for both remote-store channels: the HTTP
// mutation transport and the websocket live subscription.
type Remote struct {
	// HTTPAddress is the base URL of the remote store's mutation endpoint.
	// Env: REMOTE_HTTP_ADDRESS
	HTTPAddress string `env:"HTTP_ADDRESS"`

	// WSAddress is the websocket URL of the remote store's live
	// subscription feed.
	// Env: REMOTE_WS_ADDRESS
	WSAddress string `env:"WS_ADDRESS"`

	// RequestTimeout is the per-request timeout for outbound mutation sends.
	// Env: REMOTE_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Sync contains the write buffer's background drain settings.
type Sync struct {
	// DrainInterval is how often the drain loop scans the pending log.
	// Env: SYNC_DRAIN_INTERVAL
	DrainInterval time.Duration `env:"DRAIN_INTERVAL"`

	// BackoffBase is the initial delay of the fibonacci backoff applied to
	// a failed send before the op returns to the pending queue.
	// Env: SYNC_BACKOFF_BASE
	BackoffBase time.Duration `env:"BACKOFF_BASE"`

	// BackoffRetries caps in-drain retry attempts per op; once exhausted the
	// op stays pending and is retried on the next drain tick.
	// Env: SYNC_BACKOFF_RETRIES
	BackoffRetries uint64 `env:"BACKOFF_RETRIES"`
}

// Defaults applied by GetConfig for fields left unset by all sources.
const (
	DefaultDSN            = "replica.db"
	DefaultHTTPAddress    = "http://localhost:8080"
	DefaultWSAddress      = "ws://localhost:8080/subscribe"
	DefaultRequestTimeout = 15 * time.Second
	DefaultDrainInterval  = 5 * time.Second
	DefaultBackoffBase    = 500 * time.Millisecond
	DefaultBackoffRetries = 4
)

// GetConfig assembles the engine configuration by merging, in order of
// precedence: environment variables, command-line flags, then the optional
// JSON file. Unset fields fall back to package defaults, and the result is
// validated before being returned.
func GetConfig() (*StructuredConfig, error) {
	cfg, err := newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return cfg, cfg.validate()
}

func (c *StructuredConfig) applyDefaults() {
	if c.Storage.DB.DSN == "" {
		c.Storage.DB.DSN = DefaultDSN
	}
	if c.Remote.HTTPAddress == "" {
		c.Remote.HTTPAddress = DefaultHTTPAddress
	}
	if c.Remote.WSAddress == "" {
		c.Remote.WSAddress = DefaultWSAddress
	}
	if c.Remote.RequestTimeout <= 0 {
		c.Remote.RequestTimeout = DefaultRequestTimeout
	}
	if c.Sync.DrainInterval <= 0 {
		c.Sync.DrainInterval = DefaultDrainInterval
	}
	if c.Sync.BackoffBase <= 0 {
		c.Sync.BackoffBase = DefaultBackoffBase
	}
	if c.Sync.BackoffRetries == 0 {
		c.Sync.BackoffRetries = DefaultBackoffRetries
	}
}

func (c *StructuredConfig) validate() error {
	if c.Storage.DB.DSN == "" {
		return ErrNoDSN
	}
	if c.Remote.HTTPAddress == "" || c.Remote.WSAddress == "" {
		return ErrNoRemoteAddress
	}
	if c.Sync.DrainInterval <= 0 || c.Sync.BackoffBase <= 0 {
		return ErrInvalidSyncSettings
	}
	return nil
}
