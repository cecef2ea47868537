package notes

import "time"

// Command is a notes mutation. The set is closed: only the types in this file
// implement it.
type Command interface {
	isNotesCommand()
}

// AddNote prepends a new note. A zero CreatedAt means "now"; a set one
// restores a note with its original creation time.
type AddNote struct {
	ID        string
	Title     string
	Content   string
	Tags      []string
	Pinned    bool
	Archived  bool
	CreatedAt time.Time
}

// UpdateNote merges Changes into the note with ID.
type UpdateNote struct {
	ID      string
	Changes Changes
}

// Changes lists the fields an update replaces; nil fields are kept.
// Identity and creation time are not editable.
type Changes struct {
	Title    *string
	Content  *string
	Tags     *[]string
	Pinned   *bool
	Archived *bool
}

// IsZero reports whether the changes touch no field.
func (c Changes) IsZero() bool {
	return c.Title == nil && c.Content == nil && c.Tags == nil && c.Pinned == nil && c.Archived == nil
}

// DeleteNote removes the note with ID.
type DeleteNote struct{ ID string }

// TogglePin flips the pinned flag of the note with ID.
type TogglePin struct{ ID string }

// ArchiveNote hides the note with ID from the default view.
type ArchiveNote struct{ ID string }

// RestoreNote brings an archived note back.
type RestoreNote struct{ ID string }

// BulkDelete removes every note whose ID is listed.
type BulkDelete struct{ IDs []string }

func (AddNote) isNotesCommand()     {}
func (UpdateNote) isNotesCommand()  {}
func (DeleteNote) isNotesCommand()  {}
func (TogglePin) isNotesCommand()   {}
func (ArchiveNote) isNotesCommand() {}
func (RestoreNote) isNotesCommand() {}
func (BulkDelete) isNotesCommand()  {}
