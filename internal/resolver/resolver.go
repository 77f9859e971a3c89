// Package resolver reconciles a local cache entry with the server's copy of
// the same record. Detection and resolution are pure functions over both
// sides, so repeated calls on the same inputs always produce byte-identical
// output.
package resolver

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dkhromov/syncline/internal/events"
	"github.com/dkhromov/syncline/internal/logger"
	"github.com/dkhromov/syncline/internal/utils"
	"github.com/dkhromov/syncline/models"
)

var (
	ErrEmptyConflictSide = errors.New("conflict side carries no data")
	ErrManualMergeFailed = errors.New("manual merge failed")
)

// Resolver detects and resolves divergence between cache entries and server
// snapshots.
type Resolver struct {
	// skewThreshold separates "clearly different edit times" from "edits at
	// the same moment" when classifying divergence.
	skewThreshold time.Duration

	// manual is the caller-supplied merge used by the Manual strategy. May
	// be nil.
	manual models.MergeFunc

	sink events.Sink
	log  *logger.Logger
}

func New(skewThreshold time.Duration, manual models.MergeFunc, sink events.Sink, log *logger.Logger) *Resolver {
	return &Resolver{
		skewThreshold: skewThreshold,
		manual:        manual,
		sink:          sink,
		log:           log,
	}
}

// Detect compares the local cache entry against the server snapshot for the
// given kind. It returns false when the payloads hash identically: equal
// content is never a conflict, whatever the timestamps say.
//
// Otherwise divergence is TimestampSkew when the edit times are further
// apart than the skew threshold, else HashMismatch. The resolution is picked
// by timestamp: the newer side wins, an exact tie forces a merge since
// neither side is authoritatively newer.
func (r *Resolver) Detect(kind models.EntityKind, local models.CacheEntry, server models.ServerSnapshot) (models.ConflictRecord, bool) {
	same, err := utils.SameContent(local.Data, server.Data)
	if err == nil && same {
		return models.ConflictRecord{}, false
	}

	serverTS := server.UpdatedAt.Millis()
	record := models.ConflictRecord{
		EntityKind: kind,
		Local: models.ConflictSide{
			Data:      local.Data,
			Timestamp: local.Timestamp,
			DeviceID:  local.DeviceID,
		},
		Server: models.ConflictSide{
			Data:      server.Data,
			Timestamp: serverTS,
			DeviceID:  server.DeviceID,
		},
	}

	delta := local.Timestamp - serverTS
	if delta < 0 {
		delta = -delta
	}
	if delta > r.skewThreshold.Milliseconds() {
		record.Divergence = models.TimestampSkew
	} else {
		record.Divergence = models.HashMismatch
	}

	switch {
	case serverTS > local.Timestamp:
		record.Chosen = models.ServerWins
	case serverTS < local.Timestamp:
		record.Chosen = models.LocalWins
	default:
		record.Chosen = models.Merged
	}

	r.sink.Emit(events.Event{
		Kind:   events.ConflictDetected,
		Entity: kind,
		Detail: fmt.Sprintf("%s: %s", record.Divergence, record.Chosen),
		At:     time.Now(),
	})
	return record, true
}

// Resolve computes the reconciled payload for a detected conflict. It never
// mutates either side.
//
// A failing or panicking manual merge is downgraded, not fatal: the server
// value is kept, the incident goes to the event sink, and the sync pass
// continues.
func (r *Resolver) Resolve(record models.ConflictRecord, strategy models.MergeStrategy) (json.RawMessage, error) {
	if len(record.Local.Data) == 0 && len(record.Server.Data) == 0 {
		return nil, ErrEmptyConflictSide
	}

	switch strategy {
	case models.Manual:
		if r.manual == nil {
			return r.lastWriteWins(record), nil
		}
		merged, err := r.callManual(record)
		if err != nil {
			r.log.Err(err).
				Str("func", "Resolver.Resolve").
				Str("entity", string(record.EntityKind)).
				Msg("manual merge failed, keeping server value")
			r.sink.Emit(events.Event{
				Kind:   events.ConflictUnresolved,
				Entity: record.EntityKind,
				Detail: err.Error(),
				At:     time.Now(),
			})
			return record.Server.Data, nil
		}
		return merged, nil

	case models.FieldLevelMerge:
		return r.fieldLevelMerge(record)

	default:
		return r.lastWriteWins(record), nil
	}
}

// lastWriteWins returns the winning side's payload unmodified.
func (r *Resolver) lastWriteWins(record models.ConflictRecord) json.RawMessage {
	if winnerIsLocal(record) {
		return record.Local.Data
	}
	return record.Server.Data
}

// fieldLevelMerge reconciles two object payloads key by key. Non-object
// payloads on either side degrade to last-write-wins, since there is no
// field structure to merge.
func (r *Resolver) fieldLevelMerge(record models.ConflictRecord) (json.RawMessage, error) {
	var localMap, serverMap map[string]any
	if err := json.Unmarshal(record.Local.Data, &localMap); err != nil || localMap == nil {
		return r.lastWriteWins(record), nil
	}
	if err := json.Unmarshal(record.Server.Data, &serverMap); err != nil || serverMap == nil {
		return r.lastWriteWins(record), nil
	}

	merged := mergeMaps(localMap, serverMap, winnerIsLocal(record))

	out, err := utils.CanonicalJSON(merged)
	if err != nil {
		return nil, fmt.Errorf("encode merged record: %w", err)
	}
	return out, nil
}

// callManual invokes the user merge with panic containment, so a broken
// callback cannot take down a sync pass.
func (r *Resolver) callManual(record models.ConflictRecord) (out json.RawMessage, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = fmt.Errorf("%w: panic: %v", ErrManualMergeFailed, p)
		}
	}()

	out, err = r.manual(record.Local.Data, record.Server.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManualMergeFailed, err)
	}
	return out, nil
}

// winnerIsLocal decides which side is authoritative for value-level
// tie-breaks. Newer timestamp wins; on an exact tie the side with the
// lexicographically smaller device id wins, so two devices resolving the
// same pair converge on the same result.
func winnerIsLocal(record models.ConflictRecord) bool {
	if record.Local.Timestamp != record.Server.Timestamp {
		return record.Local.Timestamp > record.Server.Timestamp
	}
	return record.Local.DeviceID < record.Server.DeviceID
}

// mergeMaps implements the recursive key-by-key merge. Keys present on only
// one side are kept; identical values are kept as-is; differing nested
// objects recurse; any other differing value goes to the winning side.
func mergeMaps(local, server map[string]any, localWins bool) map[string]any {
	merged := make(map[string]any, len(server))
	for _, key := range unionKeys(local, server) {
		lv, inLocal := local[key]
		sv, inServer := server[key]

		switch {
		case !inServer:
			merged[key] = lv
		case !inLocal:
			merged[key] = sv
		case sameValue(lv, sv):
			merged[key] = sv
		default:
			lm, lok := lv.(map[string]any)
			sm, sok := sv.(map[string]any)
			if lok && sok {
				merged[key] = mergeMaps(lm, sm, localWins)
			} else if localWins {
				merged[key] = lv
			} else {
				merged[key] = sv
			}
		}
	}
	return merged
}

func unionKeys(a, b map[string]any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func sameValue(a, b any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ab) == string(bb)
}
