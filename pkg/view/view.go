// Package view computes the list of notes shown to the user from the notes
// state and the current settings. The result is never persisted.
package view

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/aretw0/notekeep/pkg/core"
)

// Option configures Derive.
type Option func(*options)

type options struct {
	lang language.Tag
}

// WithLanguage sets the locale used to order titles. Defaults to the root
// locale.
func WithLanguage(tag language.Tag) Option {
	return func(o *options) {
		o.lang = tag
	}
}

// Derive filters and orders notes according to s. The input slice is not
// modified. Pinned notes come first; each group keeps the sort order.
func Derive(notes []core.Note, s core.Settings, opts ...Option) []core.Note {
	o := options{lang: language.Und}
	for _, opt := range opts {
		opt(&o)
	}

	q := NormalizeQuery(s.Filter.Query)
	out := make([]core.Note, 0, len(notes))
	for _, n := range notes {
		if Matches(n, q, s.Filter) {
			out = append(out, n)
		}
	}

	slices.SortStableFunc(out, comparator(s, o))

	pinned := make([]core.Note, 0, len(out))
	others := make([]core.Note, 0, len(out))
	for _, n := range out {
		if n.Pinned {
			pinned = append(pinned, n)
		} else {
			others = append(others, n)
		}
	}
	return append(pinned, others...)
}

// NormalizeQuery trims and lower-cases a filter query.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Matches reports whether n passes the query, pinned and archived gates.
// q must already be normalized.
func Matches(n core.Note, q string, f core.Filter) bool {
	if q != "" && !containsQuery(n, q) {
		return false
	}
	if f.PinnedOnly && !n.Pinned {
		return false
	}
	return n.Archived == f.Archived
}

func containsQuery(n core.Note, q string) bool {
	return strings.Contains(strings.ToLower(n.Title), q) ||
		strings.Contains(strings.ToLower(n.Content), q) ||
		strings.Contains(strings.ToLower(strings.Join(n.Tags, " ")), q)
}

func comparator(s core.Settings, o options) func(a, b core.Note) int {
	dir := -1
	if s.SortDir == core.SortAsc {
		dir = 1
	}
	switch s.SortBy {
	case core.SortByTitle:
		c := collate.New(o.lang)
		return func(a, b core.Note) int {
			return dir * c.CompareString(a.Title, b.Title)
		}
	case core.SortByCreatedAt:
		return func(a, b core.Note) int {
			return dir * a.CreatedAt.Compare(b.CreatedAt)
		}
	default:
		return func(a, b core.Note) int {
			return dir * a.UpdatedAt.Compare(b.UpdatedAt)
		}
	}
}
