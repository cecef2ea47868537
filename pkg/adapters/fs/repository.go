// Package fs implements core.Repository on a directory: every key is one
// file named after it. Writes are atomic renames, and Watch reports changes
// made by other processes through fsnotify.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/notekeep/pkg/core"
)

// DefaultExt is appended to every key to form its file name.
const DefaultExt = ".json"

// DefaultWatchDebounce coalesces the burst of fsnotify events one write
// produces.
const DefaultWatchDebounce = 50 * time.Millisecond

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path          string
	MustExist     bool
	ReadOnly      bool
	Ext           string
	WatchDebounce time.Duration
	Logger        *slog.Logger
	ErrorHandler  func(error)
}

// Repository implements core.Repository, core.Lister and core.Watchable.
type Repository struct {
	Path   string
	config Config

	mu            sync.RWMutex
	watcherActive bool
	lastEvent     *time.Time
}

var (
	_ core.Repository = (*Repository)(nil)
	_ core.Lister     = (*Repository)(nil)
	_ core.Watchable  = (*Repository)(nil)
)

// NewRepository creates a filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.Ext == "" {
		config.Ext = DefaultExt
	}
	if config.WatchDebounce <= 0 {
		config.WatchDebounce = DefaultWatchDebounce
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Repository{Path: config.Path, config: config}
}

// Initialize creates the directory, or checks it exists when MustExist is set.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("storage path does not exist: %s", r.Path)
		}
		if err != nil {
			return fmt.Errorf("failed to stat storage path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("storage path is not a directory: %s", r.Path)
		}
		return nil
	}
	if r.config.ReadOnly {
		return nil
	}
	if err := os.MkdirAll(r.Path, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	return nil
}

// Get returns the text stored under key.
func (r *Repository) Get(ctx context.Context, key string) (string, error) {
	if err := core.ValidateKey(key); err != nil {
		return "", err
	}
	data, err := os.ReadFile(r.filename(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %w", key, err)
	}
	return string(data), nil
}

// Set atomically replaces the file of key.
func (r *Repository) Set(ctx context.Context, key, value string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if err := core.ValidateKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(r.Path, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := writeFileAtomic(r.filename(key), []byte(value), 0644); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	r.config.Logger.Debug("key written", "key", key, "bytes", len(value))
	return nil
}

// Delete removes the file of key. A missing key is not an error.
func (r *Repository) Delete(ctx context.Context, key string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if err := core.ValidateKey(key); err != nil {
		return err
	}
	if err := os.Remove(r.filename(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys matching the doublestar pattern, sorted.
func (r *Repository) Keys(ctx context.Context, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid key pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}
	entries, err := os.ReadDir(r.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.Path, err)
	}

	keys := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, ok := r.keyOf(e.Name())
		if !ok {
			continue
		}
		if match, _ := doublestar.Match(pattern, key); match {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Watch reports changes to keys matching pattern until ctx is done, then
// closes the channel. Writes made through this repository are reported too.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}
	if err := r.Initialize(ctx); err != nil {
		return nil, err
	}

	events := make(chan core.Event, 16)
	w := newWatchWorker(r, pattern, events)
	w.closeOnExit = true
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *Repository) filename(key string) string {
	return filepath.Join(r.Path, key+r.config.Ext)
}

// keyOf maps a file name back to its key.
func (r *Repository) keyOf(name string) (string, bool) {
	if strings.HasPrefix(name, TempFilePrefix) || !strings.HasSuffix(name, r.config.Ext) {
		return "", false
	}
	key := strings.TrimSuffix(name, r.config.Ext)
	if core.ValidateKey(key) != nil {
		return "", false
	}
	return key, true
}

func (r *Repository) reportError(err error) {
	if r.config.ErrorHandler != nil {
		r.config.ErrorHandler(err)
		return
	}
	r.config.Logger.Error("fs repository error", "error", err)
}
