// Package queue implements the durable FIFO of mutations made while the
// remote store was unreachable. Operations are delivered strictly in
// enqueue order during a drain; a failing operation is retried on the next
// drain pass up to a cap, then dropped with a visible retry-exhaustion
// event.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkhromov/syncline/internal/events"
	"github.com/dkhromov/syncline/internal/logger"
	"github.com/dkhromov/syncline/internal/netmon"
	"github.com/dkhromov/syncline/internal/store"
	"github.com/dkhromov/syncline/internal/utils"
	"github.com/dkhromov/syncline/models"
)

//go:generate mockgen -source=queue.go -destination=../mock/dispatcher_mock.go -package=mock

// Dispatcher delivers one queued operation to the remote store.
type Dispatcher interface {
	Dispatch(ctx context.Context, op models.QueuedOperation) error
}

// Options tunes queue behavior.
type Options struct {
	// SchemaVersion selects the persistence key for the serialized queue.
	SchemaVersion string

	// MaxRetries is the delivery attempt cap per operation.
	MaxRetries int

	// DrainBackoff is the pause between consecutive operations within one
	// drain pass, so the link is not saturated right after reconnect.
	DrainBackoff time.Duration

	// SettleDelay is how long an automatic drain waits after an online
	// transition before starting.
	SettleDelay time.Duration
}

// Queue is the offline operation queue.
type Queue struct {
	kv         store.KeyValue
	dispatcher Dispatcher
	monitor    *netmon.Monitor
	sink       events.Sink
	log        *logger.Logger
	ids        *utils.UUIDGenerator
	opts       Options

	mu       sync.Mutex
	ops      []models.QueuedOperation
	draining bool
}

// New constructs a Queue and rebuilds its contents from durable storage, so
// operations enqueued before a restart are not lost.
func New(ctx context.Context, kv store.KeyValue, dispatcher Dispatcher, monitor *netmon.Monitor, opts Options, sink events.Sink, log *logger.Logger) *Queue {
	q := &Queue{
		kv:         kv,
		dispatcher: dispatcher,
		monitor:    monitor,
		sink:       sink,
		log:        log,
		ids:        utils.NewUUIDGenerator(),
		opts:       opts,
	}
	q.restore(ctx)
	return q
}

// Run binds the automatic drain to the monitor's online edge: one drain is
// scheduled per offline→online transition, after a short settle delay. It
// returns immediately.
func (q *Queue) Run(ctx context.Context) {
	q.monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		go func() {
			if err := utils.SleepContext(ctx, q.opts.SettleDelay); err != nil {
				return
			}
			q.Drain(ctx)
		}()
	})
}

// Enqueue appends op and persists the queue immediately. It always succeeds
// locally: a durable-write failure is reported through the event sink while
// the operation stays queued in memory.
func (q *Queue) Enqueue(ctx context.Context, op models.QueuedOperation) models.QueuedOperation {
	if op.ID == "" {
		op.ID = q.ids.Generate()
	}
	if op.EnqueuedAt == 0 {
		op.EnqueuedAt = utils.NowMillis()
	}

	q.mu.Lock()
	q.ops = append(q.ops, op)
	q.mu.Unlock()

	q.persist(ctx)
	q.log.Debug().
		Str("func", "Queue.Enqueue").
		Str("operation_id", op.ID).
		Str("entity", string(op.EntityKind)).
		Msg("operation queued")
	return op
}

// Len returns the number of pending operations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Drain processes every operation currently in the queue, strictly FIFO.
// It is idempotent: concurrent and repeated calls on an empty or
// already-draining queue are no-ops.
//
// Each operation gets exactly one delivery attempt per pass. On failure the
// operation is re-queued at the tail with its retry counter bumped. It is
// not retried within the same pass, which bounds a pass to O(queue length)
// network calls. Once the counter reaches the cap the operation is dropped
// and a retry-exhaustion event is emitted.
func (q *Queue) Drain(ctx context.Context) {
	q.mu.Lock()
	if q.draining || len(q.ops) == 0 {
		q.mu.Unlock()
		return
	}
	q.draining = true
	pass := len(q.ops)
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	for i := 0; i < pass; i++ {
		if ctx.Err() != nil {
			return
		}
		// Connectivity dropped mid-drain: stop instead of burning retry
		// budget on calls that cannot succeed.
		if !q.monitor.Status() {
			q.log.Debug().Str("func", "Queue.Drain").Msg("offline mid-drain, pass stopped")
			return
		}

		q.mu.Lock()
		if len(q.ops) == 0 {
			q.mu.Unlock()
			return
		}
		op := q.ops[0]
		q.ops = q.ops[1:]
		q.mu.Unlock()

		if err := q.dispatcher.Dispatch(ctx, op); err != nil {
			q.requeue(ctx, op, err)
		} else {
			q.persist(ctx)
		}

		if i < pass-1 {
			if err := utils.SleepContext(ctx, utils.Backoff(op.RetryCount, q.opts.DrainBackoff)); err != nil {
				return
			}
		}
	}
}

// requeue handles one failed delivery: bump the retry counter, then either
// re-queue at the tail for the next pass or evict with a visible
// retry-exhaustion event.
func (q *Queue) requeue(ctx context.Context, op models.QueuedOperation, cause error) {
	op.RetryCount++

	if op.RetryCount >= q.opts.MaxRetries {
		q.log.Warn().
			Str("func", "Queue.requeue").
			Str("operation_id", op.ID).
			Int("retries", op.RetryCount).
			Msg("operation dropped after retry exhaustion")
		q.sink.Emit(events.Event{
			Kind:        events.RetryExhausted,
			Entity:      op.EntityKind,
			OperationID: op.ID,
			Detail:      fmt.Sprintf("%s %s dropped after %d attempts: %v", op.Kind, op.EntityKind, op.RetryCount, cause),
			At:          time.Now(),
		})
		q.persist(ctx)
		return
	}

	q.sink.Emit(events.Event{
		Kind:        events.NetworkFailure,
		Entity:      op.EntityKind,
		OperationID: op.ID,
		Detail:      cause.Error(),
		At:          time.Now(),
	})

	q.mu.Lock()
	q.ops = append(q.ops, op)
	q.mu.Unlock()
	q.persist(ctx)
}

// persist mirrors the queue to durable storage under its namespaced key.
// Credentials are not part of the wire shape and never hit disk.
func (q *Queue) persist(ctx context.Context) {
	q.mu.Lock()
	payload, err := json.Marshal(q.ops)
	q.mu.Unlock()
	if err != nil {
		q.reportStorageFailure(fmt.Errorf("encode queue: %w", err))
		return
	}

	if err = q.kv.Set(ctx, store.QueueKey(q.opts.SchemaVersion), payload); err != nil {
		q.reportStorageFailure(fmt.Errorf("persist queue: %w", err))
	}
}

// restore rebuilds the in-memory queue from durable storage.
func (q *Queue) restore(ctx context.Context) {
	payload, err := q.kv.Get(ctx, store.QueueKey(q.opts.SchemaVersion))
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			q.reportStorageFailure(fmt.Errorf("read queue: %w", err))
		}
		return
	}

	var ops []models.QueuedOperation
	if err = json.Unmarshal(payload, &ops); err != nil {
		q.reportStorageFailure(fmt.Errorf("decode queue: %w", err))
		return
	}

	q.mu.Lock()
	q.ops = ops
	q.mu.Unlock()
}

func (q *Queue) reportStorageFailure(err error) {
	q.log.Err(err).Str("func", "Queue").Msg("durable storage failure")
	q.sink.Emit(events.Event{
		Kind:   events.StorageFailure,
		Detail: err.Error(),
		At:     time.Now(),
	})
}
