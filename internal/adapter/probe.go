package adapter

import (
	"context"
	"time"

	"github.com/dkhromov/syncline/internal/logger"
)

// HTTPProbe is a polling connectivity probe backed by the remote store's
// unauthenticated health endpoint. It satisfies the network monitor's probe
// contract: an on-demand snapshot query plus a stream of raw readings. The
// monitor downstream deduplicates readings into edges, so the probe just
// reports what it sees every interval.
type HTTPProbe struct {
	store    RemoteStore
	interval time.Duration
	events   chan bool
	log      *logger.Logger
}

func NewHTTPProbe(store RemoteStore, interval time.Duration, log *logger.Logger) *HTTPProbe {
	return &HTTPProbe{
		store:    store,
		interval: interval,
		events:   make(chan bool, 1),
		log:      log,
	}
}

// Online reports current reachability with one synchronous ping.
func (p *HTTPProbe) Online(ctx context.Context) bool {
	return p.store.Ping(ctx)
}

// Events returns the reading stream fed by Run.
func (p *HTTPProbe) Events() <-chan bool {
	return p.events
}

// Run polls the health endpoint until ctx is cancelled. It implements the
// worker contract and spawns its own goroutine, returning immediately. A
// slow consumer drops readings rather than blocking the poll loop; the
// freshest reading always gets through eventually.
func (p *HTTPProbe) Run(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case p.events <- p.store.Ping(ctx):
				default:
				}
			}
		}
	}()
}
