package service

import (
	"fmt"
	"sync"

	"github.com/dkhromov/syncline/internal/events"
)

// ErrorTrail is an events.Sink that records failure-class events as the
// ordered error strings surfaced in the engine's sync state. Informational
// events pass through untouched. Construct it before the queue so dropped
// operations land on the trail, then hand it to the orchestrator.
type ErrorTrail struct {
	mu     sync.Mutex
	errs   []string
	onGrow func()
}

func NewErrorTrail() *ErrorTrail {
	return &ErrorTrail{}
}

// Emit implements events.Sink.
func (t *ErrorTrail) Emit(e events.Event) {
	switch e.Kind {
	case events.RetryExhausted, events.StorageFailure, events.ConflictUnresolved:
	default:
		return
	}

	t.mu.Lock()
	t.errs = append(t.errs, fmt.Sprintf("%s: %s", e.Kind, e.Detail))
	notify := t.onGrow
	t.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// Record appends an error string directly, outside the event taxonomy.
func (t *ErrorTrail) Record(msg string) {
	t.mu.Lock()
	t.errs = append(t.errs, msg)
	notify := t.onGrow
	t.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// Errors returns a copy of the trail in record order.
func (t *ErrorTrail) Errors() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.errs...)
}

// Reset clears the trail. Called at the start of each sync pass so the
// state reflects the latest pass only.
func (t *ErrorTrail) Reset() {
	t.mu.Lock()
	t.errs = nil
	t.mu.Unlock()
}

// restore seeds the trail from persisted state at startup, replacing any
// current contents. The republish hook is not fired.
func (t *ErrorTrail) restore(msgs []string) {
	t.mu.Lock()
	t.errs = append([]string(nil), msgs...)
	t.mu.Unlock()
}

// notifyOn registers the orchestrator's republish hook.
func (t *ErrorTrail) notifyOn(fn func()) {
	t.mu.Lock()
	t.onGrow = fn
	t.mu.Unlock()
}
