// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dmitry Khromov

package config

import "errors"

// Validation errors returned by [Config.Validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidEngineConfigs indicates invalid identity settings
	// (for example, an empty schema version or device id).
	ErrInvalidEngineConfigs = errors.New("invalid engine configuration")
	// ErrInvalidQueueConfigs indicates invalid queue settings
	// (for example, a non-positive retry cap).
	ErrInvalidQueueConfigs = errors.New("invalid queue configuration")
	// ErrInvalidRemoteConfigs indicates invalid remote store settings
	// (for example, a missing base URL or timeout).
	ErrInvalidRemoteConfigs = errors.New("invalid remote configuration")
)
