package models

// SyncState is the aggregate, process-wide view of the engine: connectivity,
// whether a sync pass is running, per-kind completion stamps, queue depth,
// and the ordered error trail.
//
// Mutated only by the sync orchestrator and the network monitor; observers
// receive value copies and can never corrupt engine state.
type SyncState struct {
	Online       bool                 `json:"online"`
	Syncing      bool                 `json:"syncing"`
	LastSyncedAt map[EntityKind]int64 `json:"lastSyncedAt"`
	PendingCount int                  `json:"pendingCount"`
	Errors       []string             `json:"errors"`
}

// Clone returns a deep copy safe to hand to observers.
func (s SyncState) Clone() SyncState {
	out := s
	out.LastSyncedAt = make(map[EntityKind]int64, len(s.LastSyncedAt))
	for k, v := range s.LastSyncedAt {
		out.LastSyncedAt[k] = v
	}
	out.Errors = append([]string(nil), s.Errors...)
	return out
}
