package models

import (
	"encoding/json"
	"fmt"
)

// EntityKind identifies a server-backed record family tracked by the sync
// engine. The value is part of cache keys and of the queued-operation wire
// shape, so constants must stay stable across releases.
type EntityKind string

const (
	// UserInfo represents the user's profile record (name, phone, address).
	// Structured records reconcile with a field-level merge.
	UserInfo EntityKind = "user_info"

	// MedicalInfo represents the user's medical record (blood type,
	// allergies, medications). Structured records reconcile with a
	// field-level merge.
	MedicalInfo EntityKind = "medical_info"

	// EmergencyContacts represents the user's contact list. List-shaped,
	// so it reconciles with last-write-wins and is never merged element-wise.
	EmergencyContacts EntityKind = "emergency_contacts"

	// RawRecord is the open catch-all for entity kinds this build does not
	// know about. The payload is carried as opaque JSON and reconciled with
	// last-write-wins.
	RawRecord EntityKind = "raw"
)

// TrackedKinds lists the entity kinds a full sync pass iterates over, in
// fixed order so sync output is reproducible.
func TrackedKinds() []EntityKind {
	return []EntityKind{UserInfo, MedicalInfo, EmergencyContacts}
}

// Valid reports whether k is a kind this build can decode into a typed
// payload. RawRecord is valid by definition.
func (k EntityKind) Valid() bool {
	switch k {
	case UserInfo, MedicalInfo, EmergencyContacts, RawRecord:
		return true
	}
	return false
}

// UserProfile is the decoded payload for the UserInfo kind.
type UserProfile struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// MedicalProfile is the decoded payload for the MedicalInfo kind.
type MedicalProfile struct {
	BloodType   string   `json:"blood_type,omitempty"`
	Allergies   []string `json:"allergies,omitempty"`
	Medications []string `json:"medications,omitempty"`
	Conditions  []string `json:"conditions,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// EmergencyContact is one element of the EmergencyContacts payload.
type EmergencyContact struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

// DecodePayload interprets raw as the typed payload for kind. Unknown kinds
// are returned verbatim as json.RawMessage so future record families pass
// through the engine untouched.
func DecodePayload(kind EntityKind, raw json.RawMessage) (any, error) {
	switch kind {
	case UserInfo:
		var p UserProfile
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case MedicalInfo:
		var p MedicalProfile
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case EmergencyContacts:
		var p []EmergencyContact
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	default:
		return raw, nil
	}
}
