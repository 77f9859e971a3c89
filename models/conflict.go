// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dmitry Khromov

package models

import "encoding/json"

// DivergenceKind classifies how a local cache entry and a server snapshot
// drifted apart.
type DivergenceKind string

const (
	// HashMismatch means both sides changed at (nearly) the same moment:
	// payloads differ but timestamps are within the skew threshold.
	HashMismatch DivergenceKind = "hash_mismatch"

	// TimestampSkew means the sides diverged at clearly different times.
	TimestampSkew DivergenceKind = "timestamp_skew"
)

// Resolution is the outcome chosen for one detected conflict.
type Resolution string

const (
	LocalWins  Resolution = "local_wins"
	ServerWins Resolution = "server_wins"
	Merged     Resolution = "merged"
)

// MergeStrategy selects how Resolve reconciles the two sides of a conflict.
type MergeStrategy int

const (
	// LastWriteWins returns the winning side's raw data unmodified.
	LastWriteWins MergeStrategy = iota

	// FieldLevelMerge reconciles structured records key by key. Only
	// meaningful for object-shaped payloads; anything else degrades to
	// last-write-wins.
	FieldLevelMerge

	// Manual delegates the merge entirely to a caller-supplied MergeFunc.
	Manual
)

// MergeFunc is a caller-supplied merge for the Manual strategy. It receives
// both sides raw and returns the reconciled payload.
type MergeFunc func(local, server json.RawMessage) (json.RawMessage, error)

// ConflictSide is one participant of a detected conflict.
type ConflictSide struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	DeviceID  string          `json:"deviceId"`
}

// ConflictRecord describes one detected divergence between the local cache
// and the server copy of the same logical record. It is computed transiently
// per reconciliation, reported to the event sink, and discarded. It is
// never persisted as its own entity.
type ConflictRecord struct {
	EntityKind EntityKind     `json:"entityKind"`
	Local      ConflictSide   `json:"local"`
	Server     ConflictSide   `json:"server"`
	Divergence DivergenceKind `json:"divergenceKind"`
	Chosen     Resolution     `json:"chosenResolution"`
}
