// Package service contains the sync orchestrator, the aggregate sync state
// it maintains, and the background jobs that keep both fresh.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkhromov/syncline/internal/adapter"
	"github.com/dkhromov/syncline/internal/events"
	"github.com/dkhromov/syncline/internal/logger"
	"github.com/dkhromov/syncline/internal/netmon"
	"github.com/dkhromov/syncline/internal/queue"
	"github.com/dkhromov/syncline/internal/resolver"
	"github.com/dkhromov/syncline/internal/store"
	"github.com/dkhromov/syncline/internal/utils"
	"github.com/dkhromov/syncline/models"
)

// Orchestrator runs full sync passes: drain the offline queue, then fetch,
// reconcile and write back every tracked entity kind. It owns the aggregate
// sync state and notifies observers on every change.
type Orchestrator struct {
	cache    store.Cache
	kv       store.KeyValue
	queue    *queue.Queue
	monitor  *netmon.Monitor
	resolver *resolver.Resolver
	remote   adapter.RemoteStore
	trail    *ErrorTrail
	sink     events.Sink
	log      *logger.Logger

	schemaVersion string

	mu        sync.Mutex
	syncing   bool
	lastSync  map[models.EntityKind]int64
	observers map[int]func(models.SyncState)
	nextObs   int
}

func NewOrchestrator(
	cache store.Cache,
	kv store.KeyValue,
	q *queue.Queue,
	monitor *netmon.Monitor,
	res *resolver.Resolver,
	remote adapter.RemoteStore,
	trail *ErrorTrail,
	sink events.Sink,
	schemaVersion string,
	log *logger.Logger,
) *Orchestrator {
	o := &Orchestrator{
		cache:         cache,
		kv:            kv,
		queue:         q,
		monitor:       monitor,
		resolver:      res,
		remote:        remote,
		trail:         trail,
		sink:          sink,
		log:           log,
		schemaVersion: schemaVersion,
		lastSync:      make(map[models.EntityKind]int64),
		observers:     make(map[int]func(models.SyncState)),
	}
	o.restoreState(context.Background())
	trail.notifyOn(o.publish)
	return o
}

// Run binds the orchestrator to its collaborators' change streams so the
// published state tracks connectivity and queue depth. It returns
// immediately.
func (o *Orchestrator) Run(ctx context.Context) {
	o.monitor.Subscribe(func(bool) {
		o.publish()
	})
}

// SyncAll runs one full sync pass. It returns false without doing anything
// when a pass is already running; concurrent callers never overlap.
//
// The pass drains the offline queue first, then reconciles each tracked
// entity kind in fixed order. A failing kind is recorded on the error trail
// and does not stop the remaining kinds. The syncing flag is always cleared,
// and kinds that completed get their lastSyncedAt stamp.
func (o *Orchestrator) SyncAll(ctx context.Context, token string) bool {
	o.mu.Lock()
	if o.syncing {
		o.mu.Unlock()
		o.log.Debug().Str("func", "Orchestrator.SyncAll").Msg("sync already in progress")
		return false
	}
	o.syncing = true
	o.mu.Unlock()

	o.trail.Reset()
	o.publish()

	defer func() {
		o.mu.Lock()
		o.syncing = false
		o.mu.Unlock()
		o.persistState(ctx)
		o.publish()
	}()

	o.remote.SetToken(token)
	ownerID, err := utils.OwnerFromToken(token)
	if err != nil {
		o.log.Err(err).Str("func", "Orchestrator.SyncAll").Msg("token carries no owner claim")
	}

	o.queue.Drain(ctx)

	for _, kind := range models.TrackedKinds() {
		if err := o.syncKind(ctx, kind, ownerID); err != nil {
			o.log.Err(err).
				Str("func", "Orchestrator.SyncAll").
				Str("entity", string(kind)).
				Msg("entity sync failed")
			o.trail.Record(fmt.Sprintf("%s: %v", kind, err))
			continue
		}

		o.mu.Lock()
		o.lastSync[kind] = utils.NowMillis()
		o.mu.Unlock()
	}

	return true
}

// syncKind reconciles one entity kind against the server.
func (o *Orchestrator) syncKind(ctx context.Context, kind models.EntityKind, ownerID string) error {
	snapshot, err := o.remote.Fetch(ctx, kind)
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			return o.seedServer(ctx, kind)
		}
		return fmt.Errorf("fetch: %w", err)
	}

	local, ok := o.cache.Get(ctx, kind, 0)
	if !ok {
		// Nothing cached locally: adopt the server copy wholesale,
		// preserving its timestamp.
		return o.adoptServer(ctx, kind, snapshot, ownerID)
	}

	record, found := o.resolver.Detect(kind, local, snapshot)
	if !found {
		// Same content on both sides: refresh the cache stamp to the
		// server's clock so TTL math follows the authoritative copy.
		if snapshot.UpdatedAt.Millis() > local.Timestamp {
			return o.adoptServer(ctx, kind, snapshot, ownerID)
		}
		return nil
	}

	resolved, err := o.resolver.Resolve(record, strategyFor(kind))
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	if err = o.cache.Set(ctx, kind, resolved, true, ownerID); err != nil {
		return fmt.Errorf("persist resolved: %w", err)
	}

	// Write-back only when reconciliation changed the server's view, so the
	// remote copy converges too.
	same, err := utils.SameContent(resolved, snapshot.Data)
	if err != nil {
		return fmt.Errorf("compare resolved: %w", err)
	}
	if !same {
		if err = o.remote.Push(ctx, kind, resolved); err != nil {
			return fmt.Errorf("write-back: %w", err)
		}
	}
	return nil
}

// seedServer handles a 404 from the per-kind endpoint: the server holds no
// record yet, so an existing local copy is uploaded as the initial version.
func (o *Orchestrator) seedServer(ctx context.Context, kind models.EntityKind) error {
	local, ok := o.cache.Get(ctx, kind, 0)
	if !ok {
		return nil
	}
	if err := o.remote.Push(ctx, kind, local.Data); err != nil {
		return fmt.Errorf("seed server: %w", err)
	}
	return nil
}

// adoptServer stores the server snapshot locally with the server's own
// timestamp, marked synced.
func (o *Orchestrator) adoptServer(ctx context.Context, kind models.EntityKind, snapshot models.ServerSnapshot, ownerID string) error {
	hash, err := utils.FingerprintRaw(snapshot.Data)
	if err != nil {
		return fmt.Errorf("hash server snapshot: %w", err)
	}

	entry := models.CacheEntry{
		Data:          snapshot.Data,
		Timestamp:     snapshot.UpdatedAt.Millis(),
		SchemaVersion: o.schemaVersion,
		Hash:          hash,
		Synced:        true,
		DeviceID:      snapshot.DeviceID,
		OwnerID:       ownerID,
	}
	if err = o.cache.SetEntry(ctx, kind, entry); err != nil {
		return fmt.Errorf("adopt server snapshot: %w", err)
	}
	return nil
}

// strategyFor maps an entity kind to its reconciliation strategy: structured
// records merge field by field, list-shaped and unknown records take the
// newer side wholesale.
func strategyFor(kind models.EntityKind) models.MergeStrategy {
	switch kind {
	case models.UserInfo, models.MedicalInfo:
		return models.FieldLevelMerge
	default:
		return models.LastWriteWins
	}
}

// State returns a copy of the current aggregate state.
func (o *Orchestrator) State() models.SyncState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Subscribe registers an observer called with a state copy on every change.
// The returned func unregisters it.
func (o *Orchestrator) Subscribe(fn func(models.SyncState)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextObs
	o.nextObs++
	o.observers[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.observers, id)
		o.mu.Unlock()
	}
}

func (o *Orchestrator) snapshotLocked() models.SyncState {
	state := models.SyncState{
		Online:       o.monitor.Status(),
		Syncing:      o.syncing,
		LastSyncedAt: o.lastSync,
		PendingCount: o.queue.Len(),
		Errors:       o.trail.Errors(),
	}
	return state.Clone()
}

func (o *Orchestrator) publish() {
	o.mu.Lock()
	state := o.snapshotLocked()
	observers := make([]func(models.SyncState), 0, len(o.observers))
	for _, fn := range o.observers {
		observers = append(observers, fn)
	}
	o.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}

// persistedState is the durable subset of the aggregate state. Connectivity
// and queue depth are live values and rebuilt from their owners.
type persistedState struct {
	LastSyncedAt map[models.EntityKind]int64 `json:"lastSyncedAt"`
	Errors       []string                    `json:"errors"`
}

func (o *Orchestrator) persistState(ctx context.Context) {
	o.mu.Lock()
	payload, err := json.Marshal(persistedState{
		LastSyncedAt: o.lastSync,
		Errors:       o.trail.Errors(),
	})
	o.mu.Unlock()
	if err != nil {
		o.reportStorageFailure(fmt.Errorf("encode sync state: %w", err))
		return
	}

	if err = o.kv.Set(ctx, store.StateKey(o.schemaVersion), payload); err != nil {
		o.reportStorageFailure(fmt.Errorf("persist sync state: %w", err))
	}
}

func (o *Orchestrator) restoreState(ctx context.Context) {
	payload, err := o.kv.Get(ctx, store.StateKey(o.schemaVersion))
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			o.reportStorageFailure(fmt.Errorf("read sync state: %w", err))
		}
		return
	}

	var state persistedState
	if err = json.Unmarshal(payload, &state); err != nil {
		o.reportStorageFailure(fmt.Errorf("decode sync state: %w", err))
		return
	}

	o.mu.Lock()
	if state.LastSyncedAt != nil {
		o.lastSync = state.LastSyncedAt
	}
	o.mu.Unlock()

	if len(state.Errors) > 0 {
		o.trail.restore(state.Errors)
	}
}

func (o *Orchestrator) reportStorageFailure(err error) {
	o.log.Err(err).Str("func", "Orchestrator").Msg("durable storage failure")
	o.sink.Emit(events.Event{
		Kind:   events.StorageFailure,
		Detail: err.Error(),
		At:     time.Now(),
	})
}
