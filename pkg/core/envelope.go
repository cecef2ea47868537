package core

import (
	"encoding/json"
	"maps"
)

// SchemaVersion is the envelope version written by this build.
const SchemaVersion = 1

// DefaultKey is the persistence key used when none is configured.
const DefaultKey = "notes.app.v1"

// Envelope is the versioned top-level object stored under the persistence key.
type Envelope struct {
	Version  int      `json:"version"`
	Notes    []Note   `json:"notes"`
	Settings Settings `json:"settings"`

	// Extra holds top-level members this build does not know.
	Extra map[string]json.RawMessage `json:"-"`
	// SettingsExtra holds settings members this build does not know.
	SettingsExtra map[string]json.RawMessage `json:"-"`
	// Opaque holds notes of a newer schema that could not be decoded. They
	// are written back after Notes, unchanged.
	Opaque []json.RawMessage `json:"-"`
}

// EnvelopeMembers are the top-level member names of Envelope.
var EnvelopeMembers = []string{"version", "notes", "settings"}

// SettingsMembers are the member names of Settings.
var SettingsMembers = []string{"theme", "sortBy", "sortDir", "filter"}

// DefaultEnvelope returns an empty envelope at the current schema version.
func DefaultEnvelope() Envelope {
	return Envelope{
		Version:  SchemaVersion,
		Notes:    []Note{},
		Settings: DefaultSettings(),
	}
}

// Preserved copies the members e carries for a newer schema onto next.
func (e Envelope) Preserved(next Envelope) Envelope {
	next.Extra = maps.Clone(e.Extra)
	next.SettingsExtra = maps.Clone(e.SettingsExtra)
	next.Opaque = append([]json.RawMessage(nil), e.Opaque...)
	return next
}

// MarshalJSON implements json.Marshaler. Members held for a newer schema are
// merged back in.
func (e Envelope) MarshalJSON() ([]byte, error) {
	var notes any = e.Notes
	if len(e.Opaque) > 0 {
		all := make([]any, 0, len(e.Notes)+len(e.Opaque))
		for _, n := range e.Notes {
			all = append(all, n)
		}
		for _, raw := range e.Opaque {
			all = append(all, raw)
		}
		notes = all
	}
	var settings any = e.Settings
	if len(e.SettingsExtra) > 0 {
		data, err := json.Marshal(e.Settings)
		if err != nil {
			return nil, err
		}
		if data, err = mergeMembers(data, e.SettingsExtra); err != nil {
			return nil, err
		}
		settings = json.RawMessage(data)
	}
	data, err := json.Marshal(struct {
		Version  int `json:"version"`
		Notes    any `json:"notes"`
		Settings any `json:"settings"`
	}{e.Version, notes, settings})
	if err != nil {
		return nil, err
	}
	return mergeMembers(data, e.Extra)
}
