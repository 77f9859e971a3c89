// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dmitry Khromov

package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_Deterministic(t *testing.T) {
	payload := map[string]any{"name": "Alice", "phone": "111-222"}

	first, err := Fingerprint(payload)
	require.NoError(t, err)
	second, err := Fingerprint(payload)
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.Equal(t, first, second, "fingerprint must be deterministic for the same input")
}

func TestFingerprint_KeyOrderIndependent(t *testing.T) {
	a := json.RawMessage(`{"name":"Alice","phone":"111-222"}`)
	b := json.RawMessage(`{"phone":"111-222","name":"Alice"}`)

	ha, err := FingerprintRaw(a)
	require.NoError(t, err)
	hb, err := FingerprintRaw(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb, "key order must not affect the fingerprint")
}

func TestFingerprint_DistinctContent(t *testing.T) {
	ha, err := FingerprintRaw(json.RawMessage(`{"name":"Alice"}`))
	require.NoError(t, err)
	hb, err := FingerprintRaw(json.RawMessage(`{"name":"Bob"}`))
	require.NoError(t, err)

	assert.NotEqual(t, ha, hb)
}

func TestFingerprint_StructAndRawAgree(t *testing.T) {
	type profile struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}

	fromStruct, err := Fingerprint(profile{Name: "Alice", Phone: "111"})
	require.NoError(t, err)
	fromRaw, err := FingerprintRaw(json.RawMessage(`{"phone":"111","name":"Alice"}`))
	require.NoError(t, err)

	assert.Equal(t, fromStruct, fromRaw)
}

func TestFingerprintRaw_InvalidJSON(t *testing.T) {
	_, err := FingerprintRaw(json.RawMessage(`{broken`))
	require.Error(t, err)
}

func TestSameContent(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{name: "identical", a: `{"x":1}`, b: `{"x":1}`, want: true},
		{name: "reordered keys", a: `{"x":1,"y":2}`, b: `{"y":2,"x":1}`, want: true},
		{name: "whitespace", a: `{"x": 1}`, b: `{"x":1}`, want: true},
		{name: "different values", a: `{"x":1}`, b: `{"x":2}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SameContent(json.RawMessage(tt.a), json.RawMessage(tt.b))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
