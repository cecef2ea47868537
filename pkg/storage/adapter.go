// Package storage wraps a core.Repository so that no persistence failure ever
// reaches the caller: every problem is converted into an events.ErrorEvent and
// a safe fallback value.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/notekeep/pkg/core"
	"github.com/aretw0/notekeep/pkg/events"
)

// SentinelKey is written and removed by IsAvailable.
const SentinelKey = "__storage_test__"

// BackupInfix separates the primary key from the backup timestamp.
const BackupInfix = ".__backup__"

// Messages published on the error bus.
const (
	MsgUnavailable    = "Storage is unavailable; changes will not be saved"
	MsgReadFailed     = "Failed to read saved data"
	MsgCorrupted      = "Saved data is corrupted and was ignored"
	MsgWriteFailed    = "Write failed; latest changes may not be saved"
	MsgBackupFailed   = "Failed to back up saved data"
	MsgResetFailed    = "Failed to reset corrupted data"
	MsgResetPerformed = "Corrupted data was backed up and reset"
)

// Adapter is the fault-tolerant front of a core.Repository.
type Adapter struct {
	repo   core.Repository
	bus    *events.Bus
	logger *slog.Logger
	now    func() time.Time
	sched  Scheduler

	mu    sync.Mutex
	stats Stats
}

// Stats counts physical operations performed against the repository.
type Stats struct {
	Reads    int `json:"reads"`
	Writes   int `json:"writes"`
	Removes  int `json:"removes"`
	Failures int `json:"failures"`
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBus publishes errors on an existing bus instead of a private one.
func WithBus(bus *events.Bus) Option {
	return func(a *Adapter) {
		a.bus = bus
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithClock sets the clock used for backup key timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		a.now = now
	}
}

// WithScheduler sets the scheduler used by debounced writers.
func WithScheduler(s Scheduler) Option {
	return func(a *Adapter) {
		a.sched = s
	}
}

// New creates an Adapter over repo.
func New(repo core.Repository, opts ...Option) *Adapter {
	a := &Adapter{
		repo:   repo,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
		sched:  RealScheduler{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.bus == nil {
		a.bus = events.NewBus(a.logger)
	}
	return a
}

// Repository returns the wrapped repository.
func (a *Adapter) Repository() core.Repository {
	return a.repo
}

// Bus returns the error bus the adapter publishes on.
func (a *Adapter) Bus() *events.Bus {
	return a.bus
}

// SubscribeToErrors registers handler on the error bus.
func (a *Adapter) SubscribeToErrors(handler events.Handler) (unsubscribe func()) {
	return a.bus.Subscribe(handler)
}

// Stats returns a snapshot of the operation counters.
func (a *Adapter) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// IsAvailable probes the repository by writing and removing SentinelKey.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	if a.repo == nil {
		a.fail(MsgUnavailable, "no repository configured")
		return false
	}
	if err := a.repo.Set(ctx, SentinelKey, "ok"); err != nil {
		a.fail(MsgUnavailable, err.Error())
		return false
	}
	if err := a.repo.Delete(ctx, SentinelKey); err != nil {
		a.fail(MsgUnavailable, err.Error())
		return false
	}
	return true
}

// readOutcome classifies a read.
type readOutcome int

const (
	readOK readOutcome = iota
	readMissing
	readFailed
	readCorrupt
)

// GetSafe returns the JSON value stored under key decoded into T. A missing
// key, a read failure or undecodable text all yield def; the latter two also
// publish an error event.
func GetSafe[T any](ctx context.Context, a *Adapter, key string, def T) T {
	v, _, _ := getSafe(ctx, a, key, def)
	return v
}

// GetOrRecover behaves like GetSafe, but corrupted text is additionally
// preserved under a backup key and the primary key is removed.
func GetOrRecover[T any](ctx context.Context, a *Adapter, key string, def T) T {
	v, _ := GetOrRecoverRaw(ctx, a, key, def)
	return v
}

// GetOrRecoverRaw is GetOrRecover that also returns the stored text when it
// decoded. The text is empty otherwise.
func GetOrRecoverRaw[T any](ctx context.Context, a *Adapter, key string, def T) (T, string) {
	v, outcome, raw := getSafe(ctx, a, key, def)
	switch outcome {
	case readCorrupt:
		a.BackupAndReset(ctx, key, raw)
		return v, ""
	case readOK:
		return v, raw
	}
	return v, ""
}

func getSafe[T any](ctx context.Context, a *Adapter, key string, def T) (T, readOutcome, string) {
	if a.repo == nil {
		return def, readFailed, ""
	}
	raw, err := a.repo.Get(ctx, key)
	a.count(func(s *Stats) { s.Reads++ })
	if errors.Is(err, core.ErrNotFound) {
		return def, readMissing, ""
	}
	if err != nil {
		a.fail(MsgReadFailed, fmt.Sprintf("key %q: %v", key, err))
		return def, readFailed, ""
	}

	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		a.fail(MsgCorrupted, fmt.Sprintf("key %q: %v", key, err))
		return def, readCorrupt, raw
	}
	return out, readOK, raw
}

// SetSafe JSON-encodes value and stores it under key. It reports success.
func (a *Adapter) SetSafe(ctx context.Context, key string, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		a.fail(MsgWriteFailed, fmt.Sprintf("key %q: encode: %v", key, err))
		return false
	}
	return a.setRaw(ctx, key, string(data))
}

func (a *Adapter) setRaw(ctx context.Context, key, raw string) bool {
	if a.repo == nil {
		a.fail(MsgWriteFailed, "no repository configured")
		return false
	}
	if err := a.repo.Set(ctx, key, raw); err != nil {
		a.fail(MsgWriteFailed, fmt.Sprintf("key %q: %v", key, err))
		return false
	}
	a.count(func(s *Stats) { s.Writes++ })
	a.logger.Debug("stored key", "key", key, "bytes", len(raw))
	return true
}

// BackupKey returns the sibling key a corrupted value of key is preserved under.
func BackupKey(key string, at time.Time) string {
	ts := at.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return key + BackupInfix + ts
}

// Backup stores value under a timestamped backup key of key and returns that
// key. Strings are preserved verbatim, anything else as JSON.
func (a *Adapter) Backup(ctx context.Context, key string, value any) (string, bool) {
	if a.repo == nil {
		a.fail(MsgBackupFailed, "no repository configured")
		return "", false
	}
	backupKey := BackupKey(key, a.now())
	raw, ok := value.(string)
	if !ok {
		data, err := json.Marshal(value)
		if err != nil {
			raw = fmt.Sprint(value)
		} else {
			raw = string(data)
		}
	}
	if err := a.repo.Set(ctx, backupKey, raw); err != nil {
		a.fail(MsgBackupFailed, fmt.Sprintf("key %q: %v", backupKey, err))
		return backupKey, false
	}
	a.count(func(s *Stats) { s.Writes++ })
	a.logger.Debug("backed up key", "key", key, "backup", backupKey)
	return backupKey, true
}

// BackupAndReset stores badValue under a timestamped backup key, then removes
// key. A failed backup is reported but does not stop the reset.
func (a *Adapter) BackupAndReset(ctx context.Context, key string, badValue any) bool {
	if a.repo == nil {
		a.fail(MsgResetFailed, "no repository configured")
		return false
	}

	backupKey, _ := a.Backup(ctx, key, badValue)

	if err := a.repo.Delete(ctx, key); err != nil {
		a.fail(MsgResetFailed, fmt.Sprintf("key %q: %v", key, err))
		return false
	}
	a.count(func(s *Stats) { s.Removes++ })
	a.bus.Emit(MsgResetPerformed, fmt.Sprintf("key %q backed up as %q", key, backupKey))
	return true
}

// Backups lists the backup keys recorded for key, oldest first. It returns
// nil when the repository cannot enumerate keys.
func (a *Adapter) Backups(ctx context.Context, key string) []string {
	lister, ok := a.repo.(core.Lister)
	if !ok {
		return nil
	}
	keys, err := lister.Keys(ctx, EscapeGlob(key)+BackupInfix+"*")
	if err != nil {
		a.fail(MsgReadFailed, fmt.Sprintf("list backups of %q: %v", key, err))
		return nil
	}
	return keys
}

func (a *Adapter) fail(message, detail string) {
	a.count(func(s *Stats) { s.Failures++ })
	a.bus.Emit(message, detail)
}

func (a *Adapter) count(fn func(*Stats)) {
	a.mu.Lock()
	fn(&a.stats)
	a.mu.Unlock()
}

// EscapeGlob quotes the pattern metacharacters in s so that it matches only
// itself.
func EscapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
