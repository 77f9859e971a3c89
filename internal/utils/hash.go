// Package utils provides the small pure helpers shared across the engine:
// content fingerprinting, TTL and backoff arithmetic, operation ID
// generation, and auth-token claim extraction.
package utils

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint computes the deterministic content hash of v: the value is
// serialized to canonical JSON (object keys sorted, no insignificant
// whitespace) and digested with SHA-256.
//
// Two values with the same logical content always produce the same
// fingerprint regardless of field ordering in their serialized form, which
// is what lets the conflict resolver compare a local entry against a server
// snapshot without comparing full payloads.
func Fingerprint(v any) (string, error) {
	canonical, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// FingerprintRaw is Fingerprint for a value already serialized as JSON.
func FingerprintRaw(raw json.RawMessage) (string, error) {
	return Fingerprint(raw)
}

// CanonicalJSON serializes v into canonical JSON. json.RawMessage and
// []byte inputs are treated as JSON documents and re-encoded, which sorts
// object keys and strips formatting differences.
func CanonicalJSON(v any) ([]byte, error) {
	var doc any
	switch data := v.(type) {
	case json.RawMessage:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode raw payload for canonicalization: %w", err)
		}
	case []byte:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode raw payload for canonicalization: %w", err)
		}
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode payload for canonicalization: %w", err)
		}
		if err = json.Unmarshal(encoded, &doc); err != nil {
			return nil, fmt.Errorf("re-decode payload for canonicalization: %w", err)
		}
	}

	// encoding/json writes map keys in sorted order, so a decode/encode
	// round trip yields a canonical form.
	canonical, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode canonical payload: %w", err)
	}
	return canonical, nil
}

// SameContent reports whether two JSON payloads have equal canonical forms.
func SameContent(a, b json.RawMessage) (bool, error) {
	ca, err := CanonicalJSON(a)
	if err != nil {
		return false, err
	}
	cb, err := CanonicalJSON(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ca, cb), nil
}
