package settings_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notekeep/pkg/core"
	"github.com/aretw0/notekeep/pkg/settings"
	"github.com/aretw0/notekeep/pkg/store"
)

func ptr[T any](v T) *T { return &v }

func TestSetTheme(t *testing.T) {
	s := core.DefaultSettings()

	s = settings.Reduce(s, settings.SetTheme{Theme: "dark"})
	assert.Equal(t, core.ThemeDark, s.Theme)

	for _, in := range []string{"light", "Dark", "", "blue"} {
		assert.Equal(t, core.ThemeLight, settings.Reduce(s, settings.SetTheme{Theme: in}).Theme, "input %q", in)
	}
}

func TestSetSort(t *testing.T) {
	s := core.DefaultSettings()

	s = settings.Reduce(s, settings.SetSort{SortBy: "title", SortDir: "asc"})
	assert.Equal(t, core.SortByTitle, s.SortBy)
	assert.Equal(t, core.SortAsc, s.SortDir)

	t.Run("Bogus SortBy Keeps Prior Value", func(t *testing.T) {
		next := settings.Reduce(s, settings.SetSort{SortBy: "bogus", SortDir: "desc"})
		assert.Equal(t, core.SortByTitle, next.SortBy)
		assert.Equal(t, core.SortDesc, next.SortDir)
	})

	t.Run("Both Invalid Is A No-Op", func(t *testing.T) {
		next, changed := settings.Apply(s, settings.SetSort{SortBy: "x", SortDir: "sideways"}, time.Time{})
		assert.False(t, changed)
		assert.Equal(t, s, next)
	})
}

func TestSetFilters(t *testing.T) {
	s := core.DefaultSettings()

	s = settings.Reduce(s, settings.SetFilters{Query: ptr("milk")})
	s = settings.Reduce(s, settings.SetFilters{PinnedOnly: ptr(true)})

	assert.Equal(t, core.Filter{Query: "milk", PinnedOnly: true}, s.Filter, "partial updates merge")

	s = settings.Reduce(s, settings.SetFilters{Archived: ptr(true), PinnedOnly: ptr(false)})
	assert.Equal(t, core.Filter{Query: "milk", Archived: true}, s.Filter)
}

func TestResetFilters(t *testing.T) {
	s := core.Settings{
		Theme:   core.ThemeDark,
		SortBy:  core.SortByCreatedAt,
		SortDir: core.SortAsc,
		Filter:  core.Filter{Query: "x", PinnedOnly: true, Archived: true},
	}
	next := settings.Reduce(s, settings.ResetFilters{})

	assert.Equal(t, core.DefaultFilter(), next.Filter)
	assert.Equal(t, core.ThemeDark, next.Theme)
	assert.Equal(t, core.SortByCreatedAt, next.SortBy)
	assert.Equal(t, core.SortAsc, next.SortDir)
}

func TestFiltersFromMap(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"query": 42, "pinnedOnly": 1, "archived": ""}`), &m))

	s := core.DefaultSettings()
	s.Filter = core.Filter{Query: "old", PinnedOnly: false, Archived: true}
	s = settings.Reduce(s, settings.FiltersFromMap(m))

	assert.Equal(t, core.Filter{Query: "", PinnedOnly: true, Archived: false}, s.Filter)

	untouched := settings.Reduce(s, settings.FiltersFromMap(map[string]any{}))
	assert.Equal(t, s, untouched)
}

func TestFromMap(t *testing.T) {
	tests := []struct {
		name string
		json string
		want core.Settings
	}{
		{"Empty", `{}`, core.DefaultSettings()},
		{"Valid", `{"theme":"dark","sortBy":"title","sortDir":"asc","filter":{"query":"q","pinnedOnly":true,"archived":false}}`,
			core.Settings{Theme: core.ThemeDark, SortBy: core.SortByTitle, SortDir: core.SortAsc, Filter: core.Filter{Query: "q", PinnedOnly: true}}},
		{"Invalid Members Collapse To Defaults", `{"theme":"neon","sortBy":7,"sortDir":"up","filter":"nope"}`, core.DefaultSettings()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m map[string]any
			require.NoError(t, json.Unmarshal([]byte(tt.json), &m))
			assert.Equal(t, tt.want, settings.FromMap(m))
		})
	}
	assert.Equal(t, core.DefaultSettings(), settings.FromMap(nil))
}

func TestStore_SkipsObserversOnNoOp(t *testing.T) {
	st := settings.NewStore(core.DefaultSettings())
	calls := 0
	st.Subscribe(func(core.Settings, store.Origin) { calls++ })

	st.Dispatch(settings.SetTheme{Theme: "light"})
	st.Dispatch(settings.SetTheme{Theme: "dark"})

	assert.Equal(t, 1, calls)
	assert.Equal(t, core.ThemeDark, st.State().Theme)
}
