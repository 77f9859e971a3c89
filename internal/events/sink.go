// Package events is the engine's observability boundary. Persistence
// failures, retry exhaustion, schema purges and conflict reports are emitted
// as structured events instead of disappearing into log output, so failure
// behavior is testable.
package events

import (
	"sync"
	"time"

	"github.com/dkhromov/syncline/internal/logger"
	"github.com/dkhromov/syncline/models"
)

// Kind labels the failure or lifecycle class of an event. The set mirrors
// the engine's error taxonomy.
type Kind string

const (
	// StorageFailure: a durable read/write failed; the engine continues in
	// memory where possible.
	StorageFailure Kind = "storage_failure"

	// NetworkFailure: a remote call failed; the operation is re-queued up
	// to the retry cap.
	NetworkFailure Kind = "network_failure"

	// RetryExhausted: an operation was dropped after exceeding the retry
	// cap. A deliberate data-loss boundary, always surfaced.
	RetryExhausted Kind = "retry_exhausted"

	// SchemaMismatch: a cached entry with a stale schema version was
	// purged and treated as a cache miss.
	SchemaMismatch Kind = "schema_mismatch"

	// ConflictDetected: a local/server divergence was found and resolved.
	ConflictDetected Kind = "conflict_detected"

	// ConflictUnresolved: a caller-supplied manual merge failed; the
	// server value was kept.
	ConflictUnresolved Kind = "conflict_unresolved"
)

// Event is one structured observability record.
type Event struct {
	Kind        Kind              `json:"kind"`
	Entity      models.EntityKind `json:"entity,omitempty"`
	OperationID string            `json:"operationId,omitempty"`
	Detail      string            `json:"detail,omitempty"`
	At          time.Time         `json:"at"`
}

// Sink receives engine events. Emit must be safe for concurrent use and
// must not block for long: it is called from the middle of drain and sync
// passes.
type Sink interface {
	Emit(Event)
}

// LogSink writes every event as one structured log line.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

// Emit implements Sink.
func (s *LogSink) Emit(e Event) {
	evt := s.log.Info()
	if e.Kind == StorageFailure || e.Kind == NetworkFailure || e.Kind == RetryExhausted || e.Kind == ConflictUnresolved {
		evt = s.log.Warn()
	}
	evt.
		Str("event", string(e.Kind)).
		Str("entity", string(e.Entity)).
		Str("operation_id", e.OperationID).
		Str("detail", e.Detail).
		Msg("sync event")
}

// MemorySink records events in order. Used in tests and by embedders that
// forward events into their own telemetry.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Emit implements Sink.
func (s *MemorySink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// Events returns a copy of everything emitted so far, in emission order.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// ByKind returns the recorded events of one kind, in emission order.
func (s *MemorySink) ByKind(kind Kind) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Event
	for _, e := range s.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Nop is a Sink that discards everything.
type Nop struct{}

// Emit implements Sink.
func (Nop) Emit(Event) {}
