// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dmitry Khromov

package store

import (
	"fmt"

	"github.com/dkhromov/syncline/models"
)

// CacheKey returns the namespaced storage key for an entity kind under the
// given schema version, e.g. "sync_user_info_v3".
func CacheKey(kind models.EntityKind, schemaVersion string) string {
	return fmt.Sprintf("sync_%s_%s", kind, schemaVersion)
}

// QueueKey returns the storage key holding the serialized operation queue.
func QueueKey(schemaVersion string) string {
	return fmt.Sprintf("sync_queue_%s", schemaVersion)
}

// StateKey returns the storage key holding the persisted sync state.
func StateKey(schemaVersion string) string {
	return fmt.Sprintf("sync_state_%s", schemaVersion)
}
