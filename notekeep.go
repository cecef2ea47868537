package notekeep

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"github.com/aretw0/notekeep/internal/platform"
	"github.com/aretw0/notekeep/pkg/core"
	"github.com/aretw0/notekeep/pkg/events"
	"github.com/aretw0/notekeep/pkg/service"
	"github.com/aretw0/notekeep/pkg/storage"
)

// --- Types ---

// Note is a single note.
type Note = core.Note

// Settings holds the persisted view preferences.
type Settings = core.Settings

// Envelope is the versioned document notes and settings are persisted in.
type Envelope = core.Envelope

// NoteInput carries the fields of a new note.
type NoteInput = service.NoteInput

// Notebook is an open notes service bound to its storage.
type Notebook = platform.Notebook

// Config is the content of a notekeep.yaml file.
type Config = platform.Config

// --- Configuration ---

// Option defines a functional option for configuring a notebook.
type Option = platform.Option

// Adapter names.
const (
	AdapterFS     = platform.AdapterFS
	AdapterSQLite = platform.AdapterSQLite
	AdapterMemory = platform.AdapterMemory
)

// WithAdapter selects the storage backend by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithRepository injects a custom storage backend.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithLogger sets the logger shared by every layer.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithKey sets the storage key the envelope lives under.
func WithKey(key string) Option {
	return platform.WithKey(key)
}

// WithDebounce sets the quiet period before local changes are written.
func WithDebounce(d time.Duration) Option {
	return platform.WithDebounce(d)
}

// WithWatch applies changes made by other processes while open.
func WithWatch(enabled bool) Option {
	return platform.WithWatch(enabled)
}

// WithMustExist fails Open when the notebook directory is missing.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithReadOnly rejects every write to the filesystem adapter.
func WithReadOnly(readOnly bool) Option {
	return platform.WithReadOnly(readOnly)
}

// WithForceTemp re-roots the notebook under the system temp directory.
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithDevSafety controls the development sandbox.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return platform.WithClock(now)
}

// WithIDGenerator overrides how note ids are minted.
func WithIDGenerator(fn func() string) Option {
	return platform.WithIDGenerator(fn)
}

// WithScheduler overrides the timer source of the debounced writer.
func WithScheduler(s storage.Scheduler) Option {
	return platform.WithScheduler(s)
}

// WithLanguage sets the collation used when sorting by title.
func WithLanguage(tag language.Tag) Option {
	return platform.WithLanguage(tag)
}

// WithErrorHandler receives error events, including those raised while the
// notebook boots.
func WithErrorHandler(handler events.Handler) Option {
	return platform.WithErrorHandler(handler)
}

// WithConfig applies a loaded configuration file.
func WithConfig(cfg Config) Option {
	return platform.WithConfig(cfg)
}

// --- Factory ---

// Open opens the notebook stored at path.
func Open(ctx context.Context, path string, opts ...Option) (*Notebook, error) {
	return platform.Open(ctx, path, opts...)
}

// LoadConfig reads notekeep.yaml from dir, if present.
func LoadConfig(dir string) (Config, error) {
	return platform.LoadConfig(dir)
}

// FindRoot looks upwards from dir for a notebook root.
func FindRoot(dir string) (string, error) {
	return platform.FindRoot(dir)
}
