// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dmitry Khromov

package config

import "fmt"

// Validate checks that the merged configuration can actually drive the
// engine. It is called automatically by [GetConfig] and may be called
// directly on hand-built configs.
func (c *Config) Validate() error {
	if c.Engine.SchemaVersion == "" {
		return fmt.Errorf("%w: schema version is empty", ErrInvalidEngineConfigs)
	}
	if c.Engine.DeviceID == "" {
		return fmt.Errorf("%w: device id is empty", ErrInvalidEngineConfigs)
	}

	if c.Queue.MaxRetries <= 0 {
		return fmt.Errorf("%w: max retries must be positive, got %d", ErrInvalidQueueConfigs, c.Queue.MaxRetries)
	}
	if c.Queue.DrainBackoff < 0 || c.Queue.SettleDelay < 0 {
		return fmt.Errorf("%w: negative backoff or settle delay", ErrInvalidQueueConfigs)
	}

	if c.Remote.BaseURL == "" {
		return fmt.Errorf("%w: base URL is empty", ErrInvalidRemoteConfigs)
	}
	if c.Remote.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidRemoteConfigs)
	}

	return nil
}
