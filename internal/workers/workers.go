// Package workers provides abstractions for managing and running
// background workers in the engine.
// It defines the Worker interface and a Workers aggregate that allows
// running multiple workers in a unified way.
package workers

import "context"

// Worker is the interface that must be implemented by any background worker.
// It defines a single Run method that starts the worker's execution.
//
// Implementations are expected to return quickly after spawning their
// goroutines, or to block until ctx is cancelled.
type Worker interface {
	Run(ctx context.Context)
}

// Func adapts a bare function to the Worker interface.
type Func func(ctx context.Context)

func (f Func) Run(ctx context.Context) { f(ctx) }

// Workers runs a fixed set of background workers together.
type Workers struct {
	workers []Worker
}

func New(ws ...Worker) *Workers {
	return &Workers{workers: ws}
}

func (w *Workers) Run(ctx context.Context) {
	for _, worker := range w.workers {
		worker.Run(ctx)
	}
}
