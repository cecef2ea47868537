package notes_test

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notekeep/pkg/core"
	"github.com/aretw0/notekeep/pkg/notes"
	"github.com/aretw0/notekeep/pkg/store"
)

var t0 = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func seeded(t *testing.T, titles ...string) notes.State {
	t.Helper()
	s := notes.Initial()
	for i, title := range titles {
		s = notes.Reduce(s, notes.AddNote{ID: fmt.Sprintf("n%d", i+1), Title: title}, t0.Add(time.Duration(i)*time.Minute))
	}
	return s
}

func ids(s notes.State) []string {
	out := make([]string, len(s.Notes))
	for i, n := range s.Notes {
		out[i] = n.ID
	}
	return out
}

func TestAddNote_PrependsNewest(t *testing.T) {
	s := notes.Initial()
	s = notes.Reduce(s, notes.AddNote{ID: "a", Title: "A"}, t0)
	s = notes.Reduce(s, notes.AddNote{ID: "b", Title: "B"}, t0.Add(time.Second))

	require.Len(t, s.Notes, 2)
	assert.Equal(t, "B", s.Notes[0].Title)
	assert.Equal(t, "A", s.Notes[1].Title)
}

func TestAddNote_Defaults(t *testing.T) {
	s := notes.Reduce(notes.Initial(), notes.AddNote{ID: "a"}, t0)

	n := s.Notes[0]
	assert.Equal(t, "", n.Title)
	assert.Equal(t, "", n.Content)
	assert.Equal(t, []string{}, n.Tags)
	assert.False(t, n.Pinned)
	assert.False(t, n.Archived)
	assert.Equal(t, t0, n.CreatedAt)
	assert.Equal(t, t0, n.UpdatedAt)
}

func TestAddNote_RestoresOriginalCreatedAt(t *testing.T) {
	created := t0.Add(-48 * time.Hour)
	s := notes.Reduce(notes.Initial(), notes.AddNote{ID: "a", CreatedAt: created, Pinned: true, Tags: []string{"x"}}, t0)

	assert.Equal(t, created, s.Notes[0].CreatedAt)
	assert.Equal(t, t0, s.Notes[0].UpdatedAt)
	assert.True(t, s.Notes[0].Pinned)
}

func TestAddNote_FutureCreatedAtKeepsOrdering(t *testing.T) {
	future := t0.Add(time.Hour)
	s := notes.Reduce(notes.Initial(), notes.AddNote{ID: "a", CreatedAt: future}, t0)
	assert.False(t, s.Notes[0].UpdatedAt.Before(s.Notes[0].CreatedAt))
}

func TestAddNote_RejectsEmptyOrDuplicateID(t *testing.T) {
	s := seeded(t, "A")

	same, changed := notes.Apply(s, notes.AddNote{ID: "n1", Title: "dup"}, t0)
	assert.False(t, changed)
	assert.Equal(t, "A", same.Notes[0].Title)

	_, changed = notes.Apply(s, notes.AddNote{Title: "no id"}, t0)
	assert.False(t, changed)
}

func TestAddNote_TagsAreCopied(t *testing.T) {
	tags := []string{"a", "b"}
	s := notes.Reduce(notes.Initial(), notes.AddNote{ID: "a", Tags: tags}, t0)
	tags[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, s.Notes[0].Tags)
}

func TestAddNote_SequencesKeepUniqueIDsNewestFirst(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 50; round++ {
		s := notes.Initial()
		var added []string
		n := rng.IntN(30)
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("id-%d", rng.IntN(20))
			var changed bool
			s, changed = notes.Apply(s, notes.AddNote{ID: id}, t0.Add(time.Duration(i)*time.Second))
			if changed {
				added = append(added, id)
			}
		}

		seen := map[string]bool{}
		for _, note := range s.Notes {
			require.False(t, seen[note.ID], "duplicate id %s", note.ID)
			seen[note.ID] = true
		}
		for i, j := 0, len(added)-1; i < j; i, j = i+1, j-1 {
			added[i], added[j] = added[j], added[i]
		}
		if len(added) == 0 {
			added = []string{}
		}
		assert.Equal(t, added, ids(s))
	}
}

func TestUnknownID_IsReferentiallyUnchanged(t *testing.T) {
	s := seeded(t, "A", "B")

	cmds := []notes.Command{
		notes.UpdateNote{ID: "missing", Changes: notes.Changes{Title: ptr("x")}},
		notes.DeleteNote{ID: "missing"},
		notes.TogglePin{ID: "missing"},
		notes.ArchiveNote{ID: "missing"},
		notes.RestoreNote{ID: "missing"},
		notes.BulkDelete{IDs: []string{"missing"}},
		notes.BulkDelete{},
		notes.TogglePin{},
	}
	for _, cmd := range cmds {
		t.Run(fmt.Sprintf("%T", cmd), func(t *testing.T) {
			next, changed := notes.Apply(s, cmd, t0.Add(time.Hour))
			assert.False(t, changed)
			assert.Same(t, &s.Notes[0], &next.Notes[0])
			assert.Len(t, next.Notes, len(s.Notes))
		})
	}
}

func TestUpdateNote_MergesAndStamps(t *testing.T) {
	s := seeded(t, "A")
	later := t0.Add(time.Hour)

	next := notes.Reduce(s, notes.UpdateNote{ID: "n1", Changes: notes.Changes{
		Content: ptr("body"),
		Tags:    ptr([]string{"go"}),
	}}, later)

	n := next.Notes[0]
	assert.Equal(t, "A", n.Title, "untouched fields are kept")
	assert.Equal(t, "body", n.Content)
	assert.Equal(t, []string{"go"}, n.Tags)
	assert.Equal(t, t0, n.CreatedAt)
	assert.Equal(t, later, n.UpdatedAt)

	assert.Equal(t, "", s.Notes[0].Content, "previous state is not mutated")
}

func TestTogglePinArchiveRestore(t *testing.T) {
	s := seeded(t, "A", "B")
	step := t0.Add(time.Hour)

	s = notes.Reduce(s, notes.TogglePin{ID: "n1"}, step)
	n, _ := s.Find("n1")
	assert.True(t, n.Pinned)
	assert.Equal(t, step, n.UpdatedAt)

	s = notes.Reduce(s, notes.TogglePin{ID: "n1"}, step.Add(time.Minute))
	n, _ = s.Find("n1")
	assert.False(t, n.Pinned)

	s = notes.Reduce(s, notes.ArchiveNote{ID: "n2"}, step.Add(2*time.Minute))
	n, _ = s.Find("n2")
	assert.True(t, n.Archived)
	assert.Equal(t, step.Add(2*time.Minute), n.UpdatedAt)

	s = notes.Reduce(s, notes.RestoreNote{ID: "n2"}, step.Add(3*time.Minute))
	n, _ = s.Find("n2")
	assert.False(t, n.Archived)
	assert.Equal(t, step.Add(3*time.Minute), n.UpdatedAt)

	assert.Equal(t, []string{"n2", "n1"}, ids(s), "mutations keep positions")
}

func TestDeleteNote(t *testing.T) {
	s := seeded(t, "A", "B", "C")
	next := notes.Reduce(s, notes.DeleteNote{ID: "n2"}, t0)

	assert.Equal(t, []string{"n3", "n1"}, ids(next))
	assert.Equal(t, []string{"n3", "n2", "n1"}, ids(s))
}

func TestBulkDelete(t *testing.T) {
	s := seeded(t, "A", "B", "C", "D")
	next := notes.Reduce(s, notes.BulkDelete{IDs: []string{"n1", "n3", "missing"}}, t0)

	assert.Equal(t, []string{"n4", "n2"}, ids(next))
}

func TestCreatedAtNeverAfterUpdatedAt(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	s := notes.Initial()
	now := t0
	for i := 0; i < 500; i++ {
		now = now.Add(time.Duration(rng.IntN(120)-30) * time.Second)
		id := fmt.Sprintf("n%d", rng.IntN(10))
		var cmd notes.Command
		switch rng.IntN(6) {
		case 0:
			cmd = notes.AddNote{ID: id, CreatedAt: now.Add(time.Duration(rng.IntN(60)-30) * time.Second)}
		case 1:
			cmd = notes.UpdateNote{ID: id, Changes: notes.Changes{Title: ptr("t")}}
		case 2:
			cmd = notes.TogglePin{ID: id}
		case 3:
			cmd = notes.ArchiveNote{ID: id}
		case 4:
			cmd = notes.RestoreNote{ID: id}
		case 5:
			cmd = notes.DeleteNote{ID: id}
		}
		s = notes.Reduce(s, cmd, now)
		for _, n := range s.Notes {
			require.False(t, n.UpdatedAt.Before(n.CreatedAt), "note %s", n.ID)
		}
	}
}

func TestStore_DispatchUsesClock(t *testing.T) {
	st := notes.NewStore(notes.Initial(), func() time.Time { return t0 })

	var got []notes.State
	st.Subscribe(func(s notes.State, _ store.Origin) { got = append(got, s) })

	st.Dispatch(notes.AddNote{ID: "x"})
	st.Dispatch(notes.TogglePin{ID: "nope"})

	require.Len(t, got, 1)
	assert.Equal(t, t0, st.State().Notes[0].CreatedAt)
	assert.Equal(t, core.Note{ID: "x", Tags: []string{}, CreatedAt: t0, UpdatedAt: t0}, st.State().Notes[0])
}
