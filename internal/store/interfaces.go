// Package store provides the engine's persistence layer: a namespaced
// durable key-value abstraction with SQLite and in-memory backends, and the
// versioned cache store built on top of it.
package store

import (
	"context"
	"time"

	"github.com/dkhromov/syncline/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// KeyValue is the durable key-value collaborator the engine persists
// through. Keys are namespaced strings (e.g. "sync_user_info_v3",
// "sync_queue_v3").
//
// Implementations must be safe for concurrent use.
type KeyValue interface {
	// Get returns the stored bytes for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// MultiRemove deletes every key in keys in one operation.
	MultiRemove(ctx context.Context, keys []string) error
}

// Cache is the versioned, timestamped, hashed snapshot store for
// server-backed entities.
type Cache interface {
	// Set overwrites the entry for kind unconditionally, recomputing the
	// content hash and stamping the current timestamp, schema version and
	// device id. A durable-write failure is reported through the event
	// sink but does not fail the call: the entry stays readable from
	// memory.
	Set(ctx context.Context, kind models.EntityKind, data []byte, synced bool, ownerID string) error

	// SetEntry is Set for a fully-formed entry, used when the orchestrator
	// wants to preserve a server-side timestamp.
	SetEntry(ctx context.Context, kind models.EntityKind, entry models.CacheEntry) error

	// Get returns the entry for kind. ok is false when no entry exists,
	// the entry's schema version is stale (the entry is purged as a side
	// effect), or maxAge is positive and the entry is older than it.
	Get(ctx context.Context, kind models.EntityKind, maxAge time.Duration) (models.CacheEntry, bool)

	// Remove drops the entry for kind from memory and durable storage.
	Remove(ctx context.Context, kind models.EntityKind) error

	// RemoveAll drops every tracked entry. Used on logout.
	RemoveAll(ctx context.Context) error
}
