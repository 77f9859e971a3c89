// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dmitry Khromov

// Package adapter provides the transport layer between the sync engine and
// the remote record store.
//
// The primary abstraction is [RemoteStore], which decouples the orchestrator
// and queue from the underlying protocol. The package ships an HTTP/REST
// implementation ([NewRESTRemoteStore]) built on resty, plus [HTTPProbe], a
// polling connectivity probe feeding the network monitor.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrConflict] for 409, [ErrUnauthorized] for 401).
package adapter

import (
	"context"

	"github.com/dkhromov/syncline/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/remote_store_mock.go -package=mock

// RemoteStore defines transport-agnostic communication with the remote
// record store. Implementations own serialisation, authentication header
// management, and mapping transport-level errors to this package's sentinel
// values.
type RemoteStore interface {
	// SetToken stores the bearer token attached to all subsequent
	// authenticated requests.
	SetToken(token string)

	// Token returns the bearer token currently held, or an empty string if
	// none has been set.
	Token() string

	// Fetch retrieves the server's current snapshot for one entity kind.
	// Returns [ErrNotFound] (wrapped) when the server holds no record yet.
	Fetch(ctx context.Context, kind models.EntityKind) (models.ServerSnapshot, error)

	// Push uploads a reconciled payload for one entity kind, stamping the
	// local device id and the current time. Used for conflict write-back.
	Push(ctx context.Context, kind models.EntityKind, data []byte) error

	// Dispatch delivers one queued offline operation: CREATE posts, UPDATE
	// puts, DELETE deletes. The operation's own token takes priority over
	// the stored one.
	Dispatch(ctx context.Context, op models.QueuedOperation) error

	// Ping probes server reachability without authentication. Used by the
	// connectivity probe.
	Ping(ctx context.Context) bool
}
