// Package schema normalizes the persisted envelope and upgrades it across
// schema versions.
package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/aretw0/notekeep/pkg/core"
	"github.com/aretw0/notekeep/pkg/events"
	"github.com/aretw0/notekeep/pkg/settings"
)

// Messages published on the error bus.
const (
	MsgNewerVersion    = "Saved data is from a newer version of the app"
	MsgMigrationFailed = "Saved data could not be migrated and was ignored"
	MsgMissingStep     = "No migration path for saved data version"
	MsgMalformedNotes  = "Some saved notes were malformed and were skipped"
)

// Step upgrades a payload from version N to N+1. The payload always carries
// "version" (int), "notes" ([]any) and "settings" (map[string]any).
type Step func(payload map[string]any) (map[string]any, error)

// Migrator turns whatever was decoded from storage into a valid envelope.
type Migrator struct {
	current int
	steps   map[int]Step
	bus     *events.Bus
	logger  *slog.Logger
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithVersion sets the target schema version and the steps leading to it,
// keyed by the version each step upgrades from.
func WithVersion(current int, steps map[int]Step) Option {
	return func(m *Migrator) {
		m.current = current
		m.steps = steps
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Migrator) {
		m.logger = logger
	}
}

// New creates a migrator targeting core.SchemaVersion. Problems are
// published on bus; a nil bus gets a private one.
func New(bus *events.Bus, opts ...Option) *Migrator {
	m := &Migrator{
		current: core.SchemaVersion,
		steps:   map[int]Step{},
		bus:     bus,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.bus == nil {
		m.bus = events.NewBus(m.logger)
	}
	return m
}

// Current returns the schema version the migrator upgrades to.
func (m *Migrator) Current() int {
	return m.current
}

// Default returns the envelope used whenever the payload is unusable.
func (m *Migrator) Default() core.Envelope {
	env := core.DefaultEnvelope()
	env.Version = m.current
	return env
}

// Report describes what a normalization had to give up or keep aside.
type Report struct {
	// Found is the version the payload declared.
	Found int
	// Dropped counts notes that were discarded.
	Dropped int
	// Opaque counts notes of a newer schema kept undecoded.
	Opaque int
}

// Normalize coerces raw into an envelope. It never panics: any failure yields
// the default envelope and an error event.
func (m *Migrator) Normalize(raw any) core.Envelope {
	env, _ := m.NormalizeReport(raw)
	return env
}

// NormalizeReport is Normalize, also reporting what was lost. Members this
// build does not know are carried on the envelope. Notes that fail to decode
// are dropped, unless the payload is from a newer version, in which case
// they are kept verbatim in env.Opaque.
func (m *Migrator) NormalizeReport(raw any) (env core.Envelope, rep Report) {
	defer func() {
		if r := recover(); r != nil {
			m.bus.Emit(MsgMigrationFailed, fmt.Sprintf("panic: %v", r))
			env, rep = m.Default(), Report{Found: rep.Found}
		}
	}()

	obj, ok := raw.(map[string]any)
	if !ok {
		return m.Default(), Report{Found: m.current}
	}
	working := shape(obj)
	version := working["version"].(int)
	rep.Found = version

	newer := false
	switch {
	case version < m.current:
		upgraded, err := m.upgrade(working)
		if err != nil {
			m.bus.Emit(MsgMigrationFailed, err.Error())
			return m.Default(), rep
		}
		working = upgraded
	case version > m.current:
		newer = true
		m.bus.Emit(MsgNewerVersion, fmt.Sprintf("data version %d is newer than %d", version, m.current))
	}

	notes, rejected, dropped := decodeNotes(working["notes"].([]any))
	if newer {
		for _, item := range rejected {
			data, err := json.Marshal(item)
			if err != nil {
				dropped++
				continue
			}
			env.Opaque = append(env.Opaque, data)
		}
		rep.Opaque = len(env.Opaque)
	} else {
		dropped += len(rejected)
	}
	if dropped > 0 {
		m.bus.Emit(MsgMalformedNotes, fmt.Sprintf("%d note(s) skipped", dropped))
	}
	if rep.Opaque > 0 {
		m.logger.Debug("kept undecoded notes", "version", version, "count", rep.Opaque)
	}
	rep.Dropped = dropped

	settingsMap := working["settings"].(map[string]any)
	env.Version = working["version"].(int)
	env.Notes = notes
	env.Settings = settings.FromMap(settingsMap)
	env.Extra = unknown(working, core.EnvelopeMembers)
	env.SettingsExtra = unknown(settingsMap, core.SettingsMembers)
	return env, rep
}

// unknown returns the members of obj not named in known, re-encoded, or nil.
func unknown(obj map[string]any, known []string) map[string]json.RawMessage {
	var out map[string]json.RawMessage
	for k, v := range obj {
		if slices.Contains(known, k) {
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			continue
		}
		if out == nil {
			out = make(map[string]json.RawMessage)
		}
		out[k] = data
	}
	return out
}

func (m *Migrator) upgrade(working map[string]any) (map[string]any, error) {
	for v := working["version"].(int); v < m.current; v++ {
		step, ok := m.steps[v]
		if !ok {
			m.bus.Emit(MsgMissingStep, fmt.Sprintf("version %d", v))
			working["version"] = m.current
			return working, nil
		}
		next, err := step(working)
		if err != nil {
			return nil, fmt.Errorf("migrate %d->%d: %w", v, v+1, err)
		}
		working = shape(next)
		working["version"] = v + 1
		m.logger.Debug("migrated envelope", "from", v, "to", v+1)
	}
	return working, nil
}

// shape copies obj with version, notes and settings coerced to their types.
func shape(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	out["version"] = versionOf(obj["version"])
	if notes, ok := obj["notes"].([]any); ok {
		out["notes"] = notes
	} else {
		out["notes"] = []any{}
	}
	if s, ok := obj["settings"].(map[string]any); ok {
		out["settings"] = s
	} else {
		out["settings"] = map[string]any{}
	}
	return out
}

func versionOf(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case float64:
		return clampVersion(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n)
		}
		if f, err := x.Float64(); err == nil {
			return clampVersion(f)
		}
	}
	return 1
}

// clampVersion truncates x, saturating at the bounds of int.
func clampVersion(x float64) int {
	switch {
	case math.IsNaN(x):
		return 1
	case x >= math.MaxInt:
		return math.MaxInt
	case x <= math.MinInt:
		return math.MinInt
	}
	return int(x)
}

// decodeNotes keeps every element that decodes into a note with a non-empty,
// not yet seen id. Elements that do not decode are returned as rejected;
// duplicates are only counted.
func decodeNotes(raw []any) (notes []core.Note, rejected []any, duplicates int) {
	notes = make([]core.Note, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		n, err := decodeNote(item)
		if err != nil {
			rejected = append(rejected, item)
			continue
		}
		if _, dup := seen[n.ID]; dup {
			duplicates++
			continue
		}
		seen[n.ID] = struct{}{}
		notes = append(notes, n)
	}
	return notes, rejected, duplicates
}

func decodeNote(item any) (core.Note, error) {
	if _, ok := item.(map[string]any); !ok {
		return core.Note{}, fmt.Errorf("note is %T, not an object", item)
	}
	data, err := json.Marshal(item)
	if err != nil {
		return core.Note{}, err
	}
	var n core.Note
	if err := json.Unmarshal(data, &n); err != nil {
		return core.Note{}, err
	}
	if n.ID == "" {
		return core.Note{}, fmt.Errorf("note has no id")
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return n, nil
}
