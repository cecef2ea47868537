// Package notes holds the ordered note collection and the pure reducer that
// mutates it.
package notes

import (
	"slices"
	"time"

	"github.com/aretw0/notekeep/pkg/core"
	"github.com/aretw0/notekeep/pkg/store"
)

// State is the ordered note collection, newest additions first.
type State struct {
	Notes []core.Note `json:"notes"`
}

// Initial returns the empty state.
func Initial() State {
	return State{Notes: []core.Note{}}
}

// Find returns the note with id.
func (s State) Find(id string) (core.Note, bool) {
	if i := s.index(id); i >= 0 {
		return s.Notes[i], true
	}
	return core.Note{}, false
}

func (s State) index(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.Notes, func(n core.Note) bool { return n.ID == id })
}

// Store is the observable notes container.
type Store = store.Store[State, Command]

// NewStore creates a notes store. A nil clock defaults to time.Now.
func NewStore(initial State, now func() time.Time) *Store {
	return store.New(initial, Apply, now)
}

// Reduce returns the state that results from cmd at instant now. Commands
// that target an unknown note return state unchanged.
func Reduce(state State, cmd Command, now time.Time) State {
	next, _ := Apply(state, cmd, now)
	return next
}

// Apply is Reduce that also reports whether the state changed.
func Apply(state State, cmd Command, now time.Time) (State, bool) {
	switch c := cmd.(type) {
	case AddNote:
		return add(state, c, now)
	case UpdateNote:
		return update(state, c.ID, now, func(n *core.Note) { merge(n, c.Changes) })
	case DeleteNote:
		i := state.index(c.ID)
		if i < 0 {
			return state, false
		}
		return State{Notes: slices.Delete(slices.Clone(state.Notes), i, i+1)}, true
	case TogglePin:
		return update(state, c.ID, now, func(n *core.Note) { n.Pinned = !n.Pinned })
	case ArchiveNote:
		return update(state, c.ID, now, func(n *core.Note) { n.Archived = true })
	case RestoreNote:
		return update(state, c.ID, now, func(n *core.Note) { n.Archived = false })
	case BulkDelete:
		return bulkDelete(state, c.IDs)
	default:
		return state, false
	}
}

func add(state State, c AddNote, now time.Time) (State, bool) {
	if c.ID == "" || state.index(c.ID) >= 0 {
		return state, false
	}
	created := c.CreatedAt
	if created.IsZero() {
		created = now
	}
	n := core.Note{
		ID:        c.ID,
		Title:     c.Title,
		Content:   c.Content,
		Tags:      slices.Clone(c.Tags),
		Pinned:    c.Pinned,
		Archived:  c.Archived,
		CreatedAt: created,
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	touch(&n, now)

	notes := make([]core.Note, 0, len(state.Notes)+1)
	notes = append(notes, n)
	notes = append(notes, state.Notes...)
	return State{Notes: notes}, true
}

func update(state State, id string, now time.Time, mutate func(*core.Note)) (State, bool) {
	i := state.index(id)
	if i < 0 {
		return state, false
	}
	notes := slices.Clone(state.Notes)
	n := notes[i].Clone()
	mutate(&n)
	touch(&n, now)
	notes[i] = n
	return State{Notes: notes}, true
}

func merge(n *core.Note, c Changes) {
	if c.Title != nil {
		n.Title = *c.Title
	}
	if c.Content != nil {
		n.Content = *c.Content
	}
	if c.Tags != nil {
		n.Tags = slices.Clone(*c.Tags)
		if n.Tags == nil {
			n.Tags = []string{}
		}
	}
	if c.Pinned != nil {
		n.Pinned = *c.Pinned
	}
	if c.Archived != nil {
		n.Archived = *c.Archived
	}
}

// touch stamps UpdatedAt without ever letting it precede CreatedAt.
func touch(n *core.Note, now time.Time) {
	if now.Before(n.CreatedAt) {
		now = n.CreatedAt
	}
	n.UpdatedAt = now
}

func bulkDelete(state State, ids []string) (State, bool) {
	if len(ids) == 0 {
		return state, false
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	notes := make([]core.Note, 0, len(state.Notes))
	for _, n := range state.Notes {
		if _, ok := drop[n.ID]; !ok {
			notes = append(notes, n)
		}
	}
	if len(notes) == len(state.Notes) {
		return state, false
	}
	return State{Notes: notes}, true
}
