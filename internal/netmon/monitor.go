// Package netmon turns the platform's connectivity primitive into a single
// observable boolean. Components subscribe for edge-triggered transitions or
// block on WaitForOnline; repeated identical reports from the platform are
// swallowed so listeners never see storms.
package netmon

import (
	"context"
	"sync"
	"time"

	"github.com/dkhromov/syncline/internal/logger"
)

// Probe is the external connectivity collaborator: an on-demand snapshot
// query plus a stream of connectivity change notifications.
type Probe interface {
	// Online reports current connectivity.
	Online(ctx context.Context) bool

	// Events yields connectivity reports. The channel may repeat identical
	// states; the monitor deduplicates.
	Events() <-chan bool
}

// Monitor is the process-wide connectivity signal. Constructed once at
// engine start and passed by reference to every component that needs it.
type Monitor struct {
	probe Probe
	log   *logger.Logger

	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(online bool)
}

// NewMonitor constructs a Monitor and initializes its state with one
// snapshot poll of the probe. Call Run to start consuming push events.
func NewMonitor(ctx context.Context, probe Probe, log *logger.Logger) *Monitor {
	return &Monitor{
		probe:  probe,
		log:    log,
		online: probe.Online(ctx),
		subs:   make(map[int]func(bool)),
	}
}

// Run consumes probe events until ctx is cancelled. It implements the
// worker contract and spawns its own goroutine, returning immediately.
func (m *Monitor) Run(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case online, ok := <-m.probe.Events():
				if !ok {
					return
				}
				m.report(online)
			}
		}
	}()
}

// Status returns current connectivity.
func (m *Monitor) Status() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers fn for edge-triggered connectivity changes and
// returns its unsubscribe function. fn is never called for repeated
// identical states.
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// WaitForOnline blocks until connectivity is reported, the timeout elapses,
// or ctx is cancelled. Returns true immediately when already online. The
// internal subscription is always released on settlement, whichever way the
// race resolves.
func (m *Monitor) WaitForOnline(ctx context.Context, timeout time.Duration) bool {
	ready := make(chan struct{}, 1)
	unsubscribe := m.Subscribe(func(online bool) {
		if online {
			select {
			case ready <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	// Check after subscribing: a transition between the check and the
	// subscription would otherwise be lost.
	if m.Status() {
		return true
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return false
	case <-ready:
		return true
	}
}

// report applies one probe reading. Only edges (online→offline or
// offline→online) reach subscribers.
func (m *Monitor) report(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	listeners := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	m.log.Debug().Str("func", "Monitor.report").Bool("online", online).Msg("connectivity transition")
	for _, fn := range listeners {
		fn(online)
	}
}
