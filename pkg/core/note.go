package core

import (
	"encoding/json"
	"maps"
	"slices"
	"time"
)

// Note is the central entity of the domain.
// ID and CreatedAt are assigned once at creation and never change.
type Note struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Content   string    `json:"content" yaml:"content"`
	Tags      []string  `json:"tags" yaml:"tags"`
	Pinned    bool      `json:"pinned" yaml:"pinned"`
	Archived  bool      `json:"archived" yaml:"archived"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`

	// Extra holds members this build does not know, written back verbatim.
	Extra map[string]json.RawMessage `json:"-" yaml:"-"`
}

// noteFields has the fields of Note without its JSON methods.
type noteFields Note

var noteMembers = []string{"id", "title", "content", "tags", "pinned", "archived", "createdAt", "updatedAt"}

// Clone returns a copy of the note that shares no memory with n.
func (n Note) Clone() Note {
	c := n
	c.Tags = slices.Clone(n.Tags)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	c.Extra = maps.Clone(n.Extra)
	return c
}

// MarshalJSON implements json.Marshaler. Extra members are merged in.
func (n Note) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(noteFields(n))
	if err != nil {
		return nil, err
	}
	return mergeMembers(data, n.Extra)
}

// UnmarshalJSON implements json.Unmarshaler. Unknown members go to Extra.
func (n *Note) UnmarshalJSON(data []byte) error {
	var f noteFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	extra, err := UnknownMembers(data, noteMembers...)
	if err != nil {
		return err
	}
	*n = Note(f)
	n.Extra = extra
	return nil
}
