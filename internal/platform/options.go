package platform

import (
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"github.com/aretw0/notekeep/pkg/core"
	"github.com/aretw0/notekeep/pkg/events"
	"github.com/aretw0/notekeep/pkg/storage"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = "fs"
	AdapterSQLite = "sqlite"
	AdapterMemory = "memory"
)

// DatabaseFile is the file the sqlite adapter keeps inside the notebook
// directory.
const DatabaseFile = "notekeep.db"

// options holds the internal configuration for a notebook.
type options struct {
	repository   core.Repository
	logger       *slog.Logger
	adapter      string
	key          string
	debounce     time.Duration
	watch        bool
	mustExist    bool
	readOnly     bool
	forceTemp    bool
	devSafety    bool
	now          func() time.Time
	newID        func() string
	scheduler    storage.Scheduler
	lang         language.Tag
	watchErrors  func(error)
	errorHandler events.Handler
	pollInterval time.Duration
}

// Option defines a functional option for configuring a notebook.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		adapter:   AdapterFS,
		lang:      language.Und,
		devSafety: true,
	}
}

// WithAdapter selects the storage backend: "fs", "sqlite" or "memory".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithRepository injects a custom repository. The adapter name is ignored.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithLogger sets the logger shared by every layer.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithKey sets the storage key the envelope lives under.
func WithKey(key string) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithDebounce sets the quiet period before local changes are written.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		o.debounce = d
	}
}

// WithWatch applies changes made by other processes while the notebook is
// open.
func WithWatch(enabled bool) Option {
	return func(o *options) {
		o.watch = enabled
	}
}

// WithMustExist fails Open when the notebook directory is missing.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithReadOnly rejects every write to the filesystem adapter.
func WithReadOnly(readOnly bool) Option {
	return func(o *options) {
		o.readOnly = readOnly
	}
}

// WithForceTemp re-roots the notebook under the system temp directory.
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithDevSafety controls whether `go run` and `go test` processes are
// confined to the temp directory. It is on by default.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithIDGenerator overrides how note ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		o.newID = fn
	}
}

// WithScheduler overrides the timer source of the debounced writer.
func WithScheduler(s storage.Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

// WithLanguage sets the collation used when sorting by title.
func WithLanguage(tag language.Tag) Option {
	return func(o *options) {
		o.lang = tag
	}
}

// WithWatchErrorHandler receives errors raised while watching storage.
func WithWatchErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.watchErrors = fn
	}
}

// WithErrorHandler subscribes handler to the error bus before the notebook
// boots, so problems found while loading saved data are delivered too.
func WithErrorHandler(handler events.Handler) Option {
	return func(o *options) {
		o.errorHandler = handler
	}
}

// WithPollInterval sets how often the sqlite adapter checks for commits
// made by other processes.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithConfig applies the values of a loaded configuration file. Options
// listed after it override the file.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		if cfg.Adapter != "" {
			o.adapter = cfg.Adapter
		}
		if cfg.Key != "" {
			o.key = cfg.Key
		}
		if cfg.Debounce > 0 {
			o.debounce = cfg.Debounce
		}
		if cfg.Language != "" {
			if tag, err := language.Parse(cfg.Language); err == nil {
				o.lang = tag
			}
		}
		o.watch = o.watch || cfg.Watch
	}
}
