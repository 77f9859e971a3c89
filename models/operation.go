// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dmitry Khromov

package models

import "encoding/json"

// OperationKind is the mutation verb of a queued operation.
type OperationKind string

const (
	OpCreate OperationKind = "CREATE"
	OpUpdate OperationKind = "UPDATE"
	OpDelete OperationKind = "DELETE"
)

// QueuedOperation is one pending mutation recorded while the remote store
// was unreachable. Operations are persisted in enqueue order and delivered
// strictly FIFO during a drain.
//
// RetryCount only ever grows; once it reaches the configured cap the
// operation is evicted from the queue and surfaced as a retry-exhaustion
// error, never silently dropped.
type QueuedOperation struct {
	ID         string          `json:"id"`
	Kind       OperationKind   `json:"kind"`
	EntityKind EntityKind      `json:"entityKind"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt int64           `json:"enqueuedAt"`
	RetryCount int             `json:"retryCount"`

	// AuthToken authorizes delivery. Held in memory only: the persisted
	// wire shape deliberately omits it so credentials never hit disk.
	AuthToken string `json:"-"`
}
