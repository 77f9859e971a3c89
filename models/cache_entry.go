package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CacheEntry is a locally persisted, timestamped, hashed snapshot of one
// server-backed record.
//
// Hash is always the fingerprint of Data as of the last write; a stale
// SchemaVersion invalidates the whole entry, which is then dropped rather
// than partially trusted.
type CacheEntry struct {
	Data          json.RawMessage `json:"data"`
	Timestamp     int64           `json:"timestamp"`
	SchemaVersion string          `json:"schemaVersion"`
	Hash          string          `json:"hash"`
	Synced        bool            `json:"synced"`
	DeviceID      string          `json:"deviceId"`
	OwnerID       string          `json:"ownerId,omitempty"`
}

// Age returns how long ago the entry was written, relative to now.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(e.Timestamp))
}

// ServerSnapshot is the remote store's current copy of one record, as
// returned by the per-kind GET endpoint.
type ServerSnapshot struct {
	Data      json.RawMessage `json:"data"`
	UpdatedAt EpochTime       `json:"updated_at"`
	DeviceID  string          `json:"device_id,omitempty"`
}

// EpochTime is a millisecond epoch timestamp that accepts both integer
// epoch values (seconds or milliseconds) and ISO-8601 strings on the wire.
type EpochTime int64

// UnmarshalJSON implements json.Unmarshaler. Numeric values below 1e12 are
// treated as seconds, larger ones as milliseconds; strings are parsed as
// RFC 3339.
func (t *EpochTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*t = 0
		return nil
	}

	if !strings.HasPrefix(s, `"`) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("parse epoch timestamp %q: %w", s, err)
		}
		if n < 1_000_000_000_000 {
			n *= 1000
		}
		*t = EpochTime(n)
		return nil
	}

	parsed, err := time.Parse(time.RFC3339, strings.Trim(s, `"`))
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	*t = EpochTime(parsed.UnixMilli())
	return nil
}

// MarshalJSON implements json.Marshaler. Timestamps are always written as
// millisecond epoch integers.
func (t EpochTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(t), 10)), nil
}

// Millis returns the timestamp as a millisecond epoch integer.
func (t EpochTime) Millis() int64 { return int64(t) }
