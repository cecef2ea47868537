// Package settings holds UI preferences and the reducer that validates every
// change to them. Invalid input never errors: it leaves the previous valid
// value in place (or falls back to the default).
package settings

import (
	"encoding/json"
	"math"
	"time"

	"github.com/aretw0/notekeep/pkg/core"
	"github.com/aretw0/notekeep/pkg/store"
)

// Command is a settings mutation.
type Command interface {
	isSettingsCommand()
}

// SetTheme selects the theme. Anything other than "dark" selects light.
type SetTheme struct{ Theme string }

// SetSort adopts each field only when it names a valid member.
type SetSort struct {
	SortBy  string
	SortDir string
}

// SetFilters shallow-merges the non-nil fields into the current filter.
type SetFilters struct {
	Query      *string
	PinnedOnly *bool
	Archived   *bool
}

// ResetFilters restores the empty filter and leaves theme and sort alone.
type ResetFilters struct{}

func (SetTheme) isSettingsCommand()     {}
func (SetSort) isSettingsCommand()      {}
func (SetFilters) isSettingsCommand()   {}
func (ResetFilters) isSettingsCommand() {}

// Store is the observable settings container.
type Store = store.Store[core.Settings, Command]

// NewStore creates a settings store.
func NewStore(initial core.Settings) *Store {
	return store.New(initial, Apply, nil)
}

// Reduce returns the settings that result from cmd.
func Reduce(state core.Settings, cmd Command) core.Settings {
	next, _ := Apply(state, cmd, time.Time{})
	return next
}

// Apply is Reduce in store.Reducer form. The instant is unused.
func Apply(state core.Settings, cmd Command, _ time.Time) (core.Settings, bool) {
	next := state
	switch c := cmd.(type) {
	case SetTheme:
		next.Theme = themeOf(c.Theme)
	case SetSort:
		if f := core.SortField(c.SortBy); f.Valid() {
			next.SortBy = f
		}
		if d := core.SortDir(c.SortDir); d.Valid() {
			next.SortDir = d
		}
	case SetFilters:
		if c.Query != nil {
			next.Filter.Query = *c.Query
		}
		if c.PinnedOnly != nil {
			next.Filter.PinnedOnly = *c.PinnedOnly
		}
		if c.Archived != nil {
			next.Filter.Archived = *c.Archived
		}
	case ResetFilters:
		next.Filter = core.DefaultFilter()
	}
	return next, next != state
}

func themeOf(v string) core.Theme {
	if v == string(core.ThemeDark) {
		return core.ThemeDark
	}
	return core.ThemeLight
}

// FiltersFromMap turns a loosely typed partial filter (decoded JSON, form
// input) into SetFilters. A present query that is not a string becomes "";
// present flags are converted by truthiness.
func FiltersFromMap(m map[string]any) SetFilters {
	var cmd SetFilters
	if v, ok := m["query"]; ok {
		q, _ := v.(string)
		cmd.Query = &q
	}
	if v, ok := m["pinnedOnly"]; ok {
		b := truthy(v)
		cmd.PinnedOnly = &b
	}
	if v, ok := m["archived"]; ok {
		b := truthy(v)
		cmd.Archived = &b
	}
	return cmd
}

// FromMap builds valid settings from a decoded settings object. Missing or
// invalid members take their default.
func FromMap(m map[string]any) core.Settings {
	s := core.DefaultSettings()
	if m == nil {
		return s
	}
	theme, _ := m["theme"].(string)
	s.Theme = themeOf(theme)

	by, _ := m["sortBy"].(string)
	dir, _ := m["sortDir"].(string)
	s, _ = Apply(s, SetSort{SortBy: by, SortDir: dir}, time.Time{})

	if f, ok := m["filter"].(map[string]any); ok {
		s, _ = Apply(s, FiltersFromMap(f), time.Time{})
	}
	return s
}

// truthy mirrors loose boolean coercion of decoded JSON values.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	case int64:
		return x != 0
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}
