// Package service is the consumer-facing API: it owns both stores, the
// persistence bridge and the derived view.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/aretw0/notekeep/pkg/bridge"
	"github.com/aretw0/notekeep/pkg/core"
	"github.com/aretw0/notekeep/pkg/events"
	"github.com/aretw0/notekeep/pkg/notes"
	"github.com/aretw0/notekeep/pkg/settings"
	"github.com/aretw0/notekeep/pkg/storage"
	"github.com/aretw0/notekeep/pkg/store"
	"github.com/aretw0/notekeep/pkg/view"
)

// ErrEmptyNote is returned by AddNote when both title and content are blank.
var ErrEmptyNote = errors.New("note needs a title or content")

// NoteInput describes a note to create.
type NoteInput struct {
	Title    string
	Content  string
	Tags     []string
	Pinned   bool
	Archived bool
}

// Service is safe for concurrent use.
type Service struct {
	adapter    *storage.Adapter
	notes      *notes.Store
	settings   *settings.Store
	bridge     *bridge.Bridge
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
	lang       language.Tag
	bridgeOpts []bridge.Option

	mu          sync.Mutex
	lastDeleted *core.Note
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used to stamp notes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator replaces the default UUIDv7 note ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithLanguage sets the locale used to order titles in the view.
func WithLanguage(tag language.Tag) Option {
	return func(s *Service) {
		s.lang = tag
	}
}

// WithBridge passes options to the persistence bridge.
func WithBridge(opts ...bridge.Option) Option {
	return func(s *Service) {
		s.bridgeOpts = append(s.bridgeOpts, opts...)
	}
}

// NewID returns a time-ordered note id.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// New creates a Service over adapter and boots it from storage.
func New(ctx context.Context, adapter *storage.Adapter, opts ...Option) (*Service, error) {
	s := &Service{
		adapter: adapter,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
		newID:   NewID,
		lang:    language.Und,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.notes = notes.NewStore(notes.Initial(), s.now)
	s.settings = settings.NewStore(core.DefaultSettings())
	bopts := append([]bridge.Option{bridge.WithLogger(s.logger)}, s.bridgeOpts...)
	s.bridge = bridge.New(adapter, s.notes, s.settings, bopts...)

	if _, err := s.bridge.Boot(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// AddNote creates a note with a fresh id. Title and content are trimmed.
func (s *Service) AddNote(in NoteInput) (core.Note, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" && content == "" {
		return core.Note{}, ErrEmptyNote
	}

	id := s.newID()
	state := s.notes.Dispatch(notes.AddNote{
		ID:       id,
		Title:    title,
		Content:  content,
		Tags:     in.Tags,
		Pinned:   in.Pinned,
		Archived: in.Archived,
	})
	n, ok := state.Find(id)
	if !ok {
		return core.Note{}, core.ErrNotFound
	}
	s.logger.Debug("note added", "id", id)
	return n, nil
}

// UpdateNote merges changes into the note with id. It reports whether the
// note exists.
func (s *Service) UpdateNote(id string, changes notes.Changes) bool {
	return s.dispatchExisting(id, notes.UpdateNote{ID: id, Changes: changes})
}

// TogglePin flips the pinned flag.
func (s *Service) TogglePin(id string) bool {
	return s.dispatchExisting(id, notes.TogglePin{ID: id})
}

// ArchiveNote hides the note from the default view.
func (s *Service) ArchiveNote(id string) bool {
	return s.dispatchExisting(id, notes.ArchiveNote{ID: id})
}

// RestoreNote brings an archived note back.
func (s *Service) RestoreNote(id string) bool {
	return s.dispatchExisting(id, notes.RestoreNote{ID: id})
}

// DeleteNote removes the note and remembers it for UndoDelete, replacing any
// earlier remembered note.
func (s *Service) DeleteNote(id string) bool {
	n, ok := s.notes.State().Find(id)
	if !ok {
		return false
	}
	s.notes.Dispatch(notes.DeleteNote{ID: id})

	s.mu.Lock()
	s.lastDeleted = &n
	s.mu.Unlock()
	return true
}

// BulkDelete removes every listed note and returns how many were removed.
// It does not touch the undo slot.
func (s *Service) BulkDelete(ids []string) int {
	before := len(s.notes.State().Notes)
	after := len(s.notes.Dispatch(notes.BulkDelete{IDs: ids}).Notes)
	return before - after
}

// UndoDelete re-adds the last note removed by DeleteNote as it was when
// deleted, keeping its id and creation time. The slot is cleared either way.
func (s *Service) UndoDelete() (core.Note, bool) {
	s.mu.Lock()
	n := s.lastDeleted
	s.lastDeleted = nil
	s.mu.Unlock()
	if n == nil {
		return core.Note{}, false
	}
	if _, exists := s.notes.State().Find(n.ID); exists {
		return core.Note{}, false
	}

	state := s.notes.Dispatch(notes.AddNote{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Tags:      n.Tags,
		Pinned:    n.Pinned,
		Archived:  n.Archived,
		CreatedAt: n.CreatedAt,
	})
	return state.Find(n.ID)
}

// CanUndo reports whether UndoDelete has a note to restore.
func (s *Service) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDeleted != nil
}

// SetTheme selects the theme; anything but "dark" selects light.
func (s *Service) SetTheme(theme string) core.Settings {
	return s.settings.Dispatch(settings.SetTheme{Theme: theme})
}

// SetSort adopts each valid field and keeps the rest.
func (s *Service) SetSort(sortBy, sortDir string) core.Settings {
	return s.settings.Dispatch(settings.SetSort{SortBy: sortBy, SortDir: sortDir})
}

// SetFilters merges the non-nil fields into the filter.
func (s *Service) SetFilters(f settings.SetFilters) core.Settings {
	return s.settings.Dispatch(f)
}

// ResetFilters restores the empty filter.
func (s *Service) ResetFilters() core.Settings {
	return s.settings.Dispatch(settings.ResetFilters{})
}

// Notes returns every note, newest additions first.
func (s *Service) Notes() []core.Note {
	return s.notes.State().Notes
}

// Note returns the note with id.
func (s *Service) Note(id string) (core.Note, bool) {
	return s.notes.State().Find(id)
}

// Settings returns the current settings.
func (s *Service) Settings() core.Settings {
	return s.settings.State()
}

// View returns the notes to display under the current settings.
func (s *Service) View() []core.Note {
	return view.Derive(s.notes.State().Notes, s.settings.State(), view.WithLanguage(s.lang))
}

// OnChange calls fn with the recomputed view after every change to either
// store, including changes applied from another process.
func (s *Service) OnChange(fn func(view []core.Note)) (unsubscribe func()) {
	un1 := s.notes.Subscribe(func(notes.State, store.Origin) { fn(s.View()) })
	un2 := s.settings.Subscribe(func(core.Settings, store.Origin) { fn(s.View()) })
	return func() {
		un1()
		un2()
	}
}

// Envelope returns the envelope as it would be persisted now.
func (s *Service) Envelope() core.Envelope {
	return s.bridge.Envelope()
}

// SubscribeToErrors registers handler for storage and migration problems.
func (s *Service) SubscribeToErrors(handler events.Handler) (unsubscribe func()) {
	return s.adapter.SubscribeToErrors(handler)
}

// Backups lists the keys corrupted data was preserved under.
func (s *Service) Backups(ctx context.Context) []string {
	return s.adapter.Backups(ctx, s.bridge.Key())
}

// Watch applies changes made by other processes until ctx is done.
func (s *Service) Watch(ctx context.Context) error {
	return s.bridge.Watch(ctx)
}

// PersistNow writes the current envelope immediately.
func (s *Service) PersistNow(ctx context.Context) bool {
	return s.bridge.PersistNow(ctx)
}

// Adapter returns the storage adapter.
func (s *Service) Adapter() *storage.Adapter {
	return s.adapter
}

// Bridge returns the persistence bridge.
func (s *Service) Bridge() *bridge.Bridge {
	return s.bridge
}

// Close flushes the pending write and detaches from the stores. It reports
// false when the final write failed.
func (s *Service) Close(ctx context.Context) bool {
	return s.bridge.Close(ctx)
}

func (s *Service) dispatchExisting(id string, cmd notes.Command) bool {
	if _, ok := s.notes.State().Find(id); !ok {
		return false
	}
	s.notes.Dispatch(cmd)
	return true
}

// ParseTags splits a comma separated list, trimming each tag and dropping
// empty ones.
func ParseTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
