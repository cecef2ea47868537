// Package bridge keeps the in-memory notes and settings stores and the
// persisted envelope in sync.
//
// Boot hydrates both stores from storage. Every dispatched change schedules a
// debounced write of the full envelope. Changes made to the same key by
// another process are applied with HandleChange (or Watch), replacing the
// in-memory state outright.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/cespare/xxhash/v2"

	"github.com/aretw0/notekeep/pkg/core"
	"github.com/aretw0/notekeep/pkg/notes"
	"github.com/aretw0/notekeep/pkg/schema"
	"github.com/aretw0/notekeep/pkg/settings"
	"github.com/aretw0/notekeep/pkg/storage"
	"github.com/aretw0/notekeep/pkg/store"
)

// DefaultDebounce is the quiescence delay of the envelope writer.
const DefaultDebounce = 250 * time.Millisecond

// MsgChangeRejected is published when a change made elsewhere cannot be read.
const MsgChangeRejected = "Saved data changed elsewhere but could not be read"

// ErrWatchUnsupported is returned by Watch when the repository cannot
// report changes.
var ErrWatchUnsupported = errors.New("repository does not support watching")

// recentWrites bounds the fingerprints remembered for echo detection.
const recentWrites = 8

// Stats counts bridge activity.
type Stats struct {
	Scheduled  int `json:"scheduled"`
	Immediate  int `json:"immediate"`
	Hydrations int `json:"hydrations"`
	Echoes     int `json:"echoes"`
	Rejected   int `json:"rejected"`
}

// Bridge mediates between the stores and the storage adapter. It never
// mutates store state other than by hydrating it.
type Bridge struct {
	adapter  *storage.Adapter
	migrator *schema.Migrator
	notes    *notes.Store
	settings *settings.Store
	key      string
	debounce time.Duration
	logger   *slog.Logger
	writer   *storage.DebouncedWriter

	mu      sync.Mutex
	version int
	carried core.Envelope
	current uint64
	recent  []uint64
	unsubs  []func()
	booted  bool
	closed  bool
	stats   Stats
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithKey sets the persistence key. Defaults to core.DefaultKey.
func WithKey(key string) Option {
	return func(b *Bridge) {
		b.key = key
	}
}

// WithDebounce sets the writer delay. Defaults to DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(b *Bridge) {
		b.debounce = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithMigrator replaces the default migrator.
func WithMigrator(m *schema.Migrator) Option {
	return func(b *Bridge) {
		b.migrator = m
	}
}

// New wires adapter to both stores. Nothing is read until Boot.
func New(adapter *storage.Adapter, ns *notes.Store, ss *settings.Store, opts ...Option) *Bridge {
	b := &Bridge{
		adapter:  adapter,
		notes:    ns,
		settings: ss,
		key:      core.DefaultKey,
		debounce: DefaultDebounce,
		logger:   slog.New(slog.DiscardHandler),
		version:  core.SchemaVersion,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.migrator == nil {
		b.migrator = schema.New(adapter.Bus(), schema.WithLogger(b.logger))
	}
	b.version = b.migrator.Current()
	b.writer = adapter.DebouncedWriter(b.key, b.debounce)
	return b
}

// Key returns the persistence key.
func (b *Bridge) Key() string {
	return b.key
}

// Boot checks storage, loads and normalizes the envelope, seeds both stores
// and starts persisting changes. Corrupted data is backed up and replaced by
// the default envelope, and so is data that lost malformed notes. When
// storage is unavailable nothing is read and the stores start from the
// default envelope. Calling Boot again re-reads storage.
func (b *Bridge) Boot(ctx context.Context) (core.Envelope, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return core.Envelope{}, core.ErrClosed
	}
	b.mu.Unlock()

	var env core.Envelope
	if b.adapter.IsAvailable(ctx) {
		raw, text := storage.GetOrRecoverRaw[any](ctx, b.adapter, b.key, nil)
		var rep schema.Report
		env, rep = b.migrator.NormalizeReport(raw)
		b.preserve(ctx, text, rep)
	} else {
		b.logger.Warn("storage unavailable, starting empty", "key", b.key)
		env = b.migrator.Default()
	}
	b.hydrate(env)

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.booted {
		b.unsubs = append(b.unsubs,
			b.notes.Subscribe(func(_ notes.State, origin store.Origin) { b.changed(origin) }),
			b.settings.Subscribe(func(_ core.Settings, origin store.Origin) { b.changed(origin) }),
		)
		b.booted = true
	}
	b.logger.Info("booted", "key", b.key, "version", env.Version, "notes", len(env.Notes))
	return env, nil
}

// Envelope returns the envelope that would be persisted now.
func (b *Bridge) Envelope() core.Envelope {
	b.mu.Lock()
	version, carried := b.version, b.carried
	b.mu.Unlock()
	return carried.Preserved(core.Envelope{
		Version:  version,
		Notes:    b.notes.State().Notes,
		Settings: b.settings.State(),
	})
}

// PersistNow writes the current envelope immediately, superseding any
// pending debounced write. It reports success.
func (b *Bridge) PersistNow(ctx context.Context) bool {
	data, ok := b.encode()
	if !ok {
		return false
	}
	b.writer.Cancel()
	b.count(func(s *Stats) { s.Immediate++ })
	return b.adapter.SetSafe(ctx, b.key, json.RawMessage(data))
}

// Pending reports whether a debounced write is waiting.
func (b *Bridge) Pending() bool {
	return b.writer.Pending()
}

// HandleChange applies a change to the persistence key made by another
// process. Events for other keys, and events carrying an envelope this
// bridge wrote or already holds, are ignored. A deleted or empty value
// resets to the default envelope. It reports whether state was replaced.
func (b *Bridge) HandleChange(ev core.Event) bool {
	if ev.Key != b.key {
		return false
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return false
	}

	var env core.Envelope
	if ev.Type == core.EventDelete || ev.Value == "" {
		env = b.migrator.Default()
	} else {
		fp := xxhash.Sum64String(ev.Value)
		if b.isEcho(fp) {
			b.count(func(s *Stats) { s.Echoes++ })
			return false
		}
		var raw any
		if err := json.Unmarshal([]byte(ev.Value), &raw); err != nil {
			b.count(func(s *Stats) { s.Rejected++ })
			b.adapter.Bus().Emit(MsgChangeRejected, fmt.Sprintf("key %q: %v", b.key, err))
			return false
		}
		var rep schema.Report
		env, rep = b.migrator.NormalizeReport(raw)
		b.preserve(context.Background(), ev.Value, rep)
	}

	// The incoming value is newer than anything still pending here.
	b.writer.Cancel()
	b.hydrate(env)
	b.count(func(s *Stats) { s.Hydrations++ })
	b.logger.Info("applied external change", "key", b.key, "type", ev.Type, "notes", len(env.Notes))
	return true
}

// Watch subscribes to changes of the persistence key and applies them in
// the background until ctx is done.
func (b *Bridge) Watch(ctx context.Context) error {
	w, ok := b.adapter.Repository().(core.Watchable)
	if !ok {
		return ErrWatchUnsupported
	}
	ch, err := w.Watch(ctx, storage.EscapeGlob(b.key))
	if err != nil {
		return fmt.Errorf("watch %q: %w", b.key, err)
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-ch:
				if !ok {
					return nil
				}
				b.HandleChange(ev)
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		b.logger.Error("watch loop failed", "key", b.key, "error", err)
	}))
	return nil
}

// Close stops observing the stores and flushes the pending write. It
// reports false only when that final write failed.
func (b *Bridge) Close(ctx context.Context) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return true
	}
	b.closed = true
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()

	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
	return b.writer.Flush(ctx)
}

// Stats returns a snapshot of the counters.
func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *Bridge) changed(origin store.Origin) {
	if origin != store.OriginDispatch {
		return
	}
	data, ok := b.encode()
	if !ok {
		return
	}
	b.count(func(s *Stats) { s.Scheduled++ })
	b.writer.Write(json.RawMessage(data))
}

// preserve backs up text when normalizing it discarded notes, since the next
// write would lose them for good.
func (b *Bridge) preserve(ctx context.Context, text string, rep schema.Report) {
	if rep.Dropped == 0 || text == "" {
		return
	}
	if backupKey, ok := b.adapter.Backup(ctx, b.key, text); ok {
		b.logger.Warn("backed up data with malformed notes", "key", b.key, "backup", backupKey, "dropped", rep.Dropped)
	}
}

// hydrate replaces both stores. Observers see OriginReplace and do not
// schedule a write.
func (b *Bridge) hydrate(env core.Envelope) {
	b.mu.Lock()
	b.version = env.Version
	b.carried = env.Preserved(core.Envelope{})
	b.mu.Unlock()

	b.notes.Replace(notes.State{Notes: env.Notes})
	b.settings.Replace(env.Settings)

	if data, err := json.Marshal(env); err == nil {
		b.mu.Lock()
		b.current = xxhash.Sum64(data)
		b.mu.Unlock()
	}
}

// encode serializes the current envelope and remembers its fingerprint.
func (b *Bridge) encode() ([]byte, bool) {
	data, err := json.Marshal(b.Envelope())
	if err != nil {
		b.adapter.Bus().Emit(storage.MsgWriteFailed, fmt.Sprintf("key %q: encode: %v", b.key, err))
		return nil, false
	}
	fp := xxhash.Sum64(data)

	b.mu.Lock()
	b.current = fp
	b.recent = append(b.recent, fp)
	if len(b.recent) > recentWrites {
		b.recent = b.recent[len(b.recent)-recentWrites:]
	}
	b.mu.Unlock()
	return data, true
}

// isEcho reports whether fp is the state already held or one this bridge
// wrote. Backends report writes in order, so a matched write and every older
// one are forgotten.
func (b *Bridge) isEcho(fp uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := slices.Index(b.recent, fp); i >= 0 {
		b.recent = slices.Delete(b.recent, 0, i+1)
		return true
	}
	return fp == b.current
}

func (b *Bridge) count(fn func(*Stats)) {
	b.mu.Lock()
	fn(&b.stats)
	b.mu.Unlock()
}
