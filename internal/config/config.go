// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dmitry Khromov

package config

import (
	"time"
)

// Config is the top-level configuration container for the sync engine. It
// aggregates all sub-configurations and is populated by merging built-in
// defaults, environment variables, and an optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env:       direct environment variable name for scalar fields.
type Config struct {
	// Engine holds identity and schema settings shared by every component.
	Engine Engine `envPrefix:"SYNC_"`

	// Cache holds freshness settings for the persistent cache store.
	Cache Cache `envPrefix:"SYNC_CACHE_"`

	// Queue holds retry and pacing settings for the offline operation queue.
	Queue Queue `envPrefix:"SYNC_QUEUE_"`

	// Resolver holds conflict-classification thresholds.
	Resolver Resolver `envPrefix:"SYNC_RESOLVER_"`

	// Remote holds the remote store endpoint settings.
	Remote Remote `envPrefix:"SYNC_REMOTE_"`

	// Storage holds the local durable storage settings.
	Storage Storage `envPrefix:"SYNC_STORAGE_"`

	// Workers holds background job settings.
	Workers Workers `envPrefix:"SYNC_WORKERS_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from defaults and environment variables.
	// Env: SYNC_CONFIG
	JSONFilePath string `env:"SYNC_CONFIG"`
}

// Engine holds identity and schema settings shared by every component.
type Engine struct {
	// SchemaVersion is the cache entry schema tag of this build. An entry
	// persisted under a different version is purged on read instead of
	// being partially trusted.
	// Env: SYNC_SCHEMA_VERSION
	SchemaVersion string `env:"SCHEMA_VERSION"`

	// DeviceID identifies this installation in cache entries and pushed
	// snapshots. Generated once by the embedding application.
	// Env: SYNC_DEVICE_ID
	DeviceID string `env:"DEVICE_ID"`

	// CryptoSecret, when non-empty, enables at-rest sealing of cached
	// payloads with a key derived from this secret. Must be kept
	// confidential.
	// Env: SYNC_CRYPTO_SECRET
	CryptoSecret string `env:"CRYPTO_SECRET"`
}

// Cache holds freshness settings for the persistent cache store.
type Cache struct {
	// TTL is the default maximum age of a cached entry before Get treats
	// it as stale (e.g. "24h"). Zero disables expiry.
	// Env: SYNC_CACHE_TTL
	TTL time.Duration `env:"TTL"`
}

// Queue holds retry and pacing settings for the offline operation queue.
type Queue struct {
	// MaxRetries is the delivery attempt cap per queued operation. An
	// operation failing this many drain passes is dropped and surfaced as
	// a retry-exhaustion error.
	// Env: SYNC_QUEUE_MAX_RETRIES
	MaxRetries int `env:"MAX_RETRIES"`

	// DrainBackoff is the pause between consecutive operations within one
	// drain pass (e.g. "500ms").
	// Env: SYNC_QUEUE_DRAIN_BACKOFF
	DrainBackoff time.Duration `env:"DRAIN_BACKOFF"`

	// SettleDelay is how long to wait after an online transition before
	// the automatic drain starts, letting the link stabilize.
	// Env: SYNC_QUEUE_SETTLE_DELAY
	SettleDelay time.Duration `env:"SETTLE_DELAY"`
}

// Resolver holds conflict-classification thresholds.
type Resolver struct {
	// SkewThreshold separates TimestampSkew from HashMismatch divergence:
	// two writes within this window are treated as simultaneous.
	// Env: SYNC_RESOLVER_SKEW_THRESHOLD
	SkewThreshold time.Duration `env:"SKEW_THRESHOLD"`
}

// Remote holds the remote store endpoint settings.
type Remote struct {
	// BaseURL is the remote store base address
	// (e.g. "https://api.example.com").
	// Env: SYNC_REMOTE_BASE_URL
	BaseURL string `env:"BASE_URL"`

	// RequestTimeout is the per-request timeout for remote calls
	// (e.g. "15s").
	// Env: SYNC_REMOTE_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// ProbeInterval is how often the connectivity probe polls the health
	// endpoint (e.g. "30s").
	// Env: SYNC_REMOTE_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`
}

// Storage holds the local durable storage settings.
type Storage struct {
	// DSN is the SQLite database path used for durable cache and queue
	// persistence. The literal value "memory" (or an empty DSN) selects
	// the in-memory store: the engine then works without durability.
	// Env: SYNC_STORAGE_DSN
	DSN string `env:"DSN"`
}

// Workers holds background job settings.
type Workers struct {
	// SyncInterval defines how often the background job runs a full sync
	// pass (e.g. "5m"). Zero disables the periodic job; drains on
	// reconnect still happen.
	// Env: SYNC_WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`
}

// GetConfig loads, merges, and validates the engine configuration from all
// available sources in the following priority order (earlier sources win for
// non-zero fields):
//  1. Environment variables
//  2. JSON file (path resolved from source 1)
//  3. Built-in defaults
//
// Returns a fully populated *Config or an error if any source fails to load
// or the final config fails validation.
func GetConfig() (*Config, error) {
	return newConfigBuilder().
		withEnv().
		withJSON().
		withDefaults().
		build()
}

// Defaults returns the built-in configuration used when no source overrides
// a field.
func Defaults() *Config {
	return &Config{
		Engine: Engine{
			SchemaVersion: "v3",
		},
		Cache: Cache{
			TTL: 24 * time.Hour,
		},
		Queue: Queue{
			MaxRetries:   5,
			DrainBackoff: 500 * time.Millisecond,
			SettleDelay:  2 * time.Second,
		},
		Resolver: Resolver{
			SkewThreshold: 5 * time.Second,
		},
		Remote: Remote{
			RequestTimeout: 15 * time.Second,
			ProbeInterval:  30 * time.Second,
		},
		Workers: Workers{
			SyncInterval: 5 * time.Minute,
		},
	}
}
