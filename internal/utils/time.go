package utils

import (
	"context"
	"time"
)

// NowMillis returns the current wall clock as a millisecond epoch integer,
// the timestamp unit used throughout cache entries and queued operations.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Expired reports whether a value written at timestampMs (millisecond
// epoch) is older than maxAge at the given moment. A non-positive maxAge
// means the value never expires.
func Expired(timestampMs int64, maxAge time.Duration, now time.Time) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(time.UnixMilli(timestampMs)) > maxAge
}

// Backoff returns the delay to wait before processing the next queued
// operation. Growth is linear in the attempt number and capped at ten times
// the base so a long queue cannot stall a drain pass indefinitely.
func Backoff(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(attempt) * base
	if max := 10 * base; d > max {
		return max
	}
	return d
}

// SleepContext blocks for d or until ctx is cancelled, whichever comes
// first. Returns ctx.Err on cancellation so callers can abort a drain pass
// cleanly between operations.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
