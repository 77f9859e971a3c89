package syncline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dkhromov/syncline/internal/adapter"
	"github.com/dkhromov/syncline/internal/config"
	"github.com/dkhromov/syncline/internal/crypto"
	"github.com/dkhromov/syncline/internal/events"
	"github.com/dkhromov/syncline/internal/logger"
	"github.com/dkhromov/syncline/internal/netmon"
	"github.com/dkhromov/syncline/internal/queue"
	"github.com/dkhromov/syncline/internal/resolver"
	"github.com/dkhromov/syncline/internal/service"
	"github.com/dkhromov/syncline/internal/store"
	"github.com/dkhromov/syncline/internal/utils"
	"github.com/dkhromov/syncline/internal/workers"
	"github.com/dkhromov/syncline/models"
)

// Convenience aliases so embedding applications only import this package.
type (
	Config     = config.Config
	State      = models.SyncState
	Op         = models.QueuedOperation
	EntityKind = models.EntityKind
	MergeFunc  = models.MergeFunc
)

// Tracked entity kinds and operation kinds, re-exported.
const (
	UserInfo          = models.UserInfo
	MedicalInfo       = models.MedicalInfo
	EmergencyContacts = models.EmergencyContacts
	RawRecord         = models.RawRecord

	OpCreate = models.OpCreate
	OpUpdate = models.OpUpdate
	OpDelete = models.OpDelete
)

// LoadConfig loads and validates the engine configuration from environment
// variables, the optional JSON file named by SYNC_CONFIG, and built-in
// defaults, in that priority order.
func LoadConfig() (*Config, error) {
	return config.GetConfig()
}

// DefaultConfig returns the built-in defaults. The caller still has to fill
// in Engine.DeviceID and Remote.BaseURL before handing it to New.
func DefaultConfig() *Config {
	return config.Defaults()
}

// Option customises engine construction beyond what configuration covers.
type Option func(*options)

type options struct {
	manualMerge models.MergeFunc
	extraSink   events.Sink
	logOutput   io.Writer
}

// WithManualMerge installs a caller-supplied merge used when reconciliation
// is invoked with the manual strategy.
func WithManualMerge(fn models.MergeFunc) Option {
	return func(o *options) { o.manualMerge = fn }
}

// WithEventSink tees engine events (storage failures, retry exhaustion,
// conflicts) into sink in addition to the structured log.
func WithEventSink(sink events.Sink) Option {
	return func(o *options) { o.extraSink = sink }
}

// WithLogOutput redirects the engine's structured log, mainly for tests.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// Engine is the assembled offline-first synchronization engine. Construct
// it once per process with New and share the handle; all methods are safe
// for concurrent use.
type Engine struct {
	cfg     *config.Config
	log     *logger.Logger
	kv      store.KeyValue
	cache   store.Cache
	remote  adapter.RemoteStore
	probe   *adapter.HTTPProbe
	monitor *netmon.Monitor
	queue   *queue.Queue
	orch    *service.Orchestrator
	job     service.SyncJob
	workers *workers.Workers

	mu     sync.Mutex
	token  string
	jobCtx context.Context
}

// New wires the full engine from cfg: durable storage (SQLite, or in-memory
// when cfg.Storage.DSN is "memory" or empty), the cache store with optional
// at-rest sealing, the connectivity monitor and its HTTP probe, the offline
// queue, the conflict resolver and the sync orchestrator.
//
// Background work does not start until Run is called.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var log *logger.Logger
	if o.logOutput != nil {
		log = logger.NewLoggerWithOutput("syncline", o.logOutput)
	} else {
		log = logger.NewLogger("syncline")
	}

	trail := service.NewErrorTrail()
	sink := events.Fanout(events.NewLogSink(log), trail, o.extraSink)

	kv, err := openKV(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	var box crypto.Box
	if cfg.Engine.CryptoSecret != "" {
		if box, err = crypto.NewBox(cfg.Engine.CryptoSecret); err != nil {
			return nil, fmt.Errorf("at-rest sealing: %w", err)
		}
	}

	cache := store.NewCache(kv, store.CacheOptions{
		SchemaVersion: cfg.Engine.SchemaVersion,
		DeviceID:      cfg.Engine.DeviceID,
		Box:           box,
	}, sink, log.Component("cache"))

	remote, err := adapter.NewRESTRemoteStore(cfg.Remote, cfg.Engine.DeviceID, log.Component("remote"))
	if err != nil {
		return nil, err
	}

	probe := adapter.NewHTTPProbe(remote, cfg.Remote.ProbeInterval, log.Component("probe"))
	monitor := netmon.NewMonitor(ctx, probe, log.Component("netmon"))

	q := queue.New(ctx, kv, remote, monitor, queue.Options{
		SchemaVersion: cfg.Engine.SchemaVersion,
		MaxRetries:    cfg.Queue.MaxRetries,
		DrainBackoff:  cfg.Queue.DrainBackoff,
		SettleDelay:   cfg.Queue.SettleDelay,
	}, sink, log.Component("queue"))

	res := resolver.New(cfg.Resolver.SkewThreshold, o.manualMerge, sink, log.Component("resolver"))

	orch := service.NewOrchestrator(cache, kv, q, monitor, res, remote, trail, sink,
		cfg.Engine.SchemaVersion, log.Component("orchestrator"))

	e := &Engine{
		cfg:     cfg,
		log:     log,
		kv:      kv,
		cache:   cache,
		remote:  remote,
		probe:   probe,
		monitor: monitor,
		queue:   q,
		orch:    orch,
		job:     service.NewSyncJob(orch),
	}
	e.workers = workers.New(
		workers.Func(probe.Run),
		workers.Func(monitor.Run),
		workers.Func(q.Run),
		workers.Func(orch.Run),
		workers.Func(e.runPeriodicSync),
	)
	return e, nil
}

func openKV(ctx context.Context, cfg *Config, log *logger.Logger) (store.KeyValue, error) {
	if cfg.Storage.DSN == "" || cfg.Storage.DSN == "memory" {
		return store.NewMemoryKV(), nil
	}

	kv, err := store.NewSQLiteKV(ctx, cfg.Storage.DSN, log.Component("store"))
	if err != nil {
		return nil, fmt.Errorf("open durable storage: %w", err)
	}
	return kv, nil
}

// Run starts the engine's background workers: the connectivity probe and
// monitor, the auto-drain on reconnect, state publishing, and, when a sync
// interval is configured, the periodic full sync. It returns immediately;
// the workers stop when ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.workers.Run(ctx)
}

func (e *Engine) runPeriodicSync(ctx context.Context) {
	if e.cfg.Workers.SyncInterval <= 0 {
		return
	}
	e.mu.Lock()
	e.jobCtx = ctx
	token := e.token
	e.mu.Unlock()
	e.job.Start(ctx, token, e.cfg.Workers.SyncInterval)
}

// SetToken stores the bearer token used by sync passes and stamped on
// queued operations. Restarts the periodic job when one is running so it
// picks up the fresh token.
func (e *Engine) SetToken(token string) {
	e.mu.Lock()
	e.token = token
	jobCtx := e.jobCtx
	e.mu.Unlock()

	e.remote.SetToken(token)
	if jobCtx != nil && e.cfg.Workers.SyncInterval > 0 {
		e.job.Start(jobCtx, token, e.cfg.Workers.SyncInterval)
	}
}

// Token returns the bearer token currently held.
func (e *Engine) Token() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.token
}

// Enqueue records one mutation for delivery. It always succeeds locally,
// persisting the queue immediately; the current token is captured on the
// operation so a later drain can authenticate. The locally cached copy is
// updated at the same time so reads reflect the mutation before it reaches
// the server.
func (e *Engine) Enqueue(ctx context.Context, op Op) Op {
	if op.AuthToken == "" {
		op.AuthToken = e.Token()
	}

	if op.Kind == OpDelete {
		if err := e.cache.Remove(ctx, op.EntityKind); err != nil {
			e.log.Err(err).Str("func", "Engine.Enqueue").Msg("local delete failed")
		}
	} else if len(op.Payload) > 0 {
		ownerID, _ := utils.OwnerFromToken(op.AuthToken)
		if err := e.cache.Set(ctx, op.EntityKind, op.Payload, false, ownerID); err != nil {
			e.log.Err(err).Str("func", "Engine.Enqueue").Msg("local write failed")
		}
	}

	return e.queue.Enqueue(ctx, op)
}

// Drain triggers a manual queue drain.
func (e *Engine) Drain(ctx context.Context) {
	e.queue.Drain(ctx)
}

// SyncAll runs one full sync pass with the stored token. Returns false when
// a pass is already running.
func (e *Engine) SyncAll(ctx context.Context) bool {
	return e.orch.SyncAll(ctx, e.Token())
}

// Get reads the cached entry for kind, honoring the configured TTL.
func (e *Engine) Get(ctx context.Context, kind EntityKind) (models.CacheEntry, bool) {
	return e.cache.Get(ctx, kind, e.cfg.Cache.TTL)
}

// State returns a copy of the aggregate sync state.
func (e *Engine) State() State {
	return e.orch.State()
}

// Subscribe registers fn for state change notifications. The returned func
// unregisters it.
func (e *Engine) Subscribe(fn func(State)) (unsubscribe func()) {
	return e.orch.Subscribe(fn)
}

// Online reports current connectivity as last observed by the monitor.
func (e *Engine) Online() bool {
	return e.monitor.Status()
}

// WaitForOnline blocks until connectivity is observed or timeout elapses.
func (e *Engine) WaitForOnline(ctx context.Context, timeout time.Duration) bool {
	return e.monitor.WaitForOnline(ctx, timeout)
}

// Logout drops every cached entry and forgets the token. Queued operations
// keep their captured credentials and stay queued.
func (e *Engine) Logout(ctx context.Context) error {
	e.SetToken("")
	if err := e.cache.RemoveAll(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Close stops the periodic job and releases durable storage.
func (e *Engine) Close() error {
	e.job.Stop()
	if closer, ok := e.kv.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
