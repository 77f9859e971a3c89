package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkhromov/syncline/internal/crypto"
	"github.com/dkhromov/syncline/internal/events"
	"github.com/dkhromov/syncline/internal/logger"
	"github.com/dkhromov/syncline/internal/utils"
	"github.com/dkhromov/syncline/models"
)

// CacheOptions configures a cache store.
type CacheOptions struct {
	// SchemaVersion tags every written entry; reads purge entries tagged
	// with any other version.
	SchemaVersion string

	// DeviceID stamps locally written entries.
	DeviceID string

	// Box, when non-nil, seals payloads before they reach durable storage.
	Box crypto.Box
}

// cacheStore keeps the authoritative copy of every entry in memory and
// mirrors it to durable storage. A broken KeyValue backend degrades the
// store to memory-only operation instead of failing callers: each failed
// write or read is reported to the event sink.
type cacheStore struct {
	kv   KeyValue
	opts CacheOptions
	sink events.Sink
	log  *logger.Logger

	mu      sync.RWMutex
	entries map[models.EntityKind]models.CacheEntry
}

// NewCache constructs the versioned cache store on top of kv.
func NewCache(kv KeyValue, opts CacheOptions, sink events.Sink, log *logger.Logger) Cache {
	return &cacheStore{
		kv:      kv,
		opts:    opts,
		sink:    sink,
		log:     log,
		entries: make(map[models.EntityKind]models.CacheEntry),
	}
}

// Set implements [Cache].
func (c *cacheStore) Set(ctx context.Context, kind models.EntityKind, data []byte, synced bool, ownerID string) error {
	hash, err := utils.FingerprintRaw(data)
	if err != nil {
		return fmt.Errorf("fingerprint %s payload: %w", kind, err)
	}

	entry := models.CacheEntry{
		Data:          data,
		Timestamp:     utils.NowMillis(),
		SchemaVersion: c.opts.SchemaVersion,
		Hash:          hash,
		Synced:        synced,
		DeviceID:      c.opts.DeviceID,
		OwnerID:       ownerID,
	}

	return c.SetEntry(ctx, kind, entry)
}

// SetEntry implements [Cache]. The entry's hash is recomputed from its data
// so the invariant "hash always matches data" cannot be broken by callers.
func (c *cacheStore) SetEntry(ctx context.Context, kind models.EntityKind, entry models.CacheEntry) error {
	hash, err := utils.FingerprintRaw(entry.Data)
	if err != nil {
		return fmt.Errorf("fingerprint %s payload: %w", kind, err)
	}
	entry.Hash = hash
	if entry.SchemaVersion == "" {
		entry.SchemaVersion = c.opts.SchemaVersion
	}

	c.mu.Lock()
	c.entries[kind] = entry
	c.mu.Unlock()

	c.persist(ctx, kind, entry)
	return nil
}

// persist mirrors the entry to durable storage. Failures are reported, not
// returned: the engine keeps operating from memory.
func (c *cacheStore) persist(ctx context.Context, kind models.EntityKind, entry models.CacheEntry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		c.reportStorageFailure(kind, fmt.Errorf("encode cache entry: %w", err))
		return
	}

	if c.opts.Box != nil {
		if payload, err = c.opts.Box.Seal(payload); err != nil {
			c.reportStorageFailure(kind, fmt.Errorf("seal cache entry: %w", err))
			return
		}
	}

	if err = c.kv.Set(ctx, CacheKey(kind, c.opts.SchemaVersion), payload); err != nil {
		c.reportStorageFailure(kind, fmt.Errorf("persist cache entry: %w", err))
	}
}

// Get implements [Cache].
func (c *cacheStore) Get(ctx context.Context, kind models.EntityKind, maxAge time.Duration) (models.CacheEntry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[kind]
	c.mu.RUnlock()

	if !ok {
		entry, ok = c.load(ctx, kind)
		if !ok {
			return models.CacheEntry{}, false
		}
	}

	if entry.SchemaVersion != c.opts.SchemaVersion {
		// A stale schema invalidates the whole entry: drop it, never
		// partially trust it.
		if err := c.Remove(ctx, kind); err != nil {
			c.log.Err(err).Str("func", "cacheStore.Get").Msg("error purging stale cache entry")
		}
		c.sink.Emit(events.Event{
			Kind:   events.SchemaMismatch,
			Entity: kind,
			Detail: fmt.Sprintf("cached schema %q, current %q", entry.SchemaVersion, c.opts.SchemaVersion),
			At:     time.Now(),
		})
		return models.CacheEntry{}, false
	}

	if utils.Expired(entry.Timestamp, maxAge, time.Now()) {
		return models.CacheEntry{}, false
	}

	return entry, true
}

// load reads one entry from durable storage into memory. Used on first
// access after process start.
func (c *cacheStore) load(ctx context.Context, kind models.EntityKind) (models.CacheEntry, bool) {
	payload, err := c.kv.Get(ctx, CacheKey(kind, c.opts.SchemaVersion))
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			c.reportStorageFailure(kind, fmt.Errorf("read cache entry: %w", err))
		}
		return models.CacheEntry{}, false
	}

	if c.opts.Box != nil {
		if payload, err = c.opts.Box.Open(payload); err != nil {
			c.reportStorageFailure(kind, fmt.Errorf("open sealed cache entry: %w", err))
			return models.CacheEntry{}, false
		}
	}

	var entry models.CacheEntry
	if err = json.Unmarshal(payload, &entry); err != nil {
		c.reportStorageFailure(kind, fmt.Errorf("decode cache entry: %w", err))
		return models.CacheEntry{}, false
	}

	c.mu.Lock()
	c.entries[kind] = entry
	c.mu.Unlock()

	return entry, true
}

// Remove implements [Cache].
func (c *cacheStore) Remove(ctx context.Context, kind models.EntityKind) error {
	c.mu.Lock()
	delete(c.entries, kind)
	c.mu.Unlock()

	if err := c.kv.Remove(ctx, CacheKey(kind, c.opts.SchemaVersion)); err != nil {
		return fmt.Errorf("remove cache entry %s: %w", kind, err)
	}
	return nil
}

// RemoveAll implements [Cache].
func (c *cacheStore) RemoveAll(ctx context.Context) error {
	kinds := append(models.TrackedKinds(), models.RawRecord)

	c.mu.Lock()
	c.entries = make(map[models.EntityKind]models.CacheEntry)
	c.mu.Unlock()

	keys := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		keys = append(keys, CacheKey(kind, c.opts.SchemaVersion))
	}

	if err := c.kv.MultiRemove(ctx, keys); err != nil {
		return fmt.Errorf("remove all cache entries: %w", err)
	}
	return nil
}

func (c *cacheStore) reportStorageFailure(kind models.EntityKind, err error) {
	c.log.Err(err).Str("func", "cacheStore").Str("entity", string(kind)).Msg("durable storage failure")
	c.sink.Emit(events.Event{
		Kind:   events.StorageFailure,
		Entity: kind,
		Detail: err.Error(),
		At:     time.Now(),
	})
}
