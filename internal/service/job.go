package service

import (
	"context"
	"sync"
	"time"
)

// Syncer is the slice of the orchestrator the background job needs.
type Syncer interface {
	SyncAll(ctx context.Context, token string) bool
}

// SyncJob is a restartable periodic full-sync runner.
type SyncJob interface {
	// Start launches the periodic sync with the given token. A running job
	// is stopped first, so Start doubles as a restart with a fresh token.
	Start(ctx context.Context, token string, interval time.Duration)

	// Stop halts the job and waits for the background goroutine to exit.
	Stop()
}

type syncJob struct {
	syncer Syncer

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncJob creates a periodic sync job that calls syncer.SyncAll on a
// ticker. The job is idle until Start is called.
func NewSyncJob(syncer Syncer) SyncJob {
	return &syncJob{syncer: syncer}
}

// Start stops any previously running job, then launches a background
// goroutine that runs a full sync every interval with the given token. If
// interval is zero or negative it defaults to 5 minutes. The goroutine exits
// when ctx is cancelled or Stop is called.
func (j *syncJob) Start(ctx context.Context, token string, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				_ = j.syncer.SyncAll(jobCtx, token)
			}
		}
	}()
}

// Stop cancels the background goroutine and blocks until it has fully
// exited. Safe to call when the job is not running.
func (j *syncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
