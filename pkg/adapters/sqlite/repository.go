// Package sqlite implements core.Repository on a single-table SQLite
// database through the cgo-free modernc.org/sqlite driver. Several processes
// may share the file; Watch notices their commits through PRAGMA data_version.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	_ "modernc.org/sqlite"

	"github.com/aretw0/notekeep/pkg/core"
)

// DefaultPollInterval is how often Watch checks for foreign commits.
const DefaultPollInterval = 200 * time.Millisecond

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

// Config holds the configuration for the SQLite repository.
type Config struct {
	Path         string
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Repository implements core.Repository, core.Lister and core.Watchable.
type Repository struct {
	Path   string
	config Config
	db     *sql.DB

	mu       sync.Mutex
	watchers int
	polls    int
}

var (
	_ core.Repository = (*Repository)(nil)
	_ core.Lister     = (*Repository)(nil)
	_ core.Watchable  = (*Repository)(nil)
)

// NewRepository opens (lazily) the database file at config.Path.
func NewRepository(config Config) (*Repository, error) {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	db, err := sql.Open("sqlite", config.Path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Repository{Path: config.Path, config: config, db: db}, nil
}

// Initialize creates the parent directory and the table.
func (r *Repository) Initialize(ctx context.Context) error {
	if dir := filepath.Dir(r.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Get returns the value stored under key.
func (r *Repository) Get(ctx context.Context, key string) (string, error) {
	if err := core.ValidateKey(key); err != nil {
		return "", err
	}
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// Set upserts key.
func (r *Repository) Set(ctx context.Context, key, value string) error {
	if err := core.ValidateKey(key); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	r.config.Logger.Debug("key written", "key", key, "bytes", len(value))
	return nil
}

// Delete removes key. A missing key is not an error.
func (r *Repository) Delete(ctx context.Context, key string) error {
	if err := core.ValidateKey(key); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Keys lists the keys matching the doublestar pattern, sorted.
func (r *Repository) Keys(ctx context.Context, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid key pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}
	rows, err := r.db.QueryContext(ctx, `SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		if match, _ := doublestar.Match(pattern, key); match {
			keys = append(keys, key)
		}
	}
	return keys, rows.Err()
}
