package core

// Theme is the UI color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// SortField names the note attribute the derived view is ordered by.
type SortField string

const (
	SortByUpdatedAt SortField = "updatedAt"
	SortByCreatedAt SortField = "createdAt"
	SortByTitle     SortField = "title"
)

// Valid reports whether f is one of the known sort fields.
func (f SortField) Valid() bool {
	switch f {
	case SortByUpdatedAt, SortByCreatedAt, SortByTitle:
		return true
	}
	return false
}

// SortDir is the ordering direction.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// Valid reports whether d is asc or desc.
func (d SortDir) Valid() bool {
	return d == SortAsc || d == SortDesc
}

// Filter narrows the derived view.
type Filter struct {
	Query      string `json:"query" yaml:"query"`
	PinnedOnly bool   `json:"pinnedOnly" yaml:"pinnedOnly"`
	Archived   bool   `json:"archived" yaml:"archived"`
}

// Settings holds the UI preferences persisted next to the notes.
type Settings struct {
	Theme   Theme     `json:"theme" yaml:"theme"`
	SortBy  SortField `json:"sortBy" yaml:"sortBy"`
	SortDir SortDir   `json:"sortDir" yaml:"sortDir"`
	Filter  Filter    `json:"filter" yaml:"filter"`
}

// DefaultFilter returns the empty filter.
func DefaultFilter() Filter {
	return Filter{}
}

// DefaultSettings returns light theme, newest-updated first, no filter.
func DefaultSettings() Settings {
	return Settings{
		Theme:   ThemeLight,
		SortBy:  SortByUpdatedAt,
		SortDir: SortDesc,
		Filter:  DefaultFilter(),
	}
}
