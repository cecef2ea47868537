package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Repository defines the contract for the key/value persistence backend.
// Adhering to this interface keeps the storage adapter independent of the
// underlying mechanism (files, SQLite, memory).
type Repository interface {
	// Get returns the raw text stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Initialize ensures the underlying storage is ready (directories, schema).
	Initialize(ctx context.Context) error
}

// Lister is implemented by repositories that can enumerate their keys.
type Lister interface {
	// Keys returns the keys matching a doublestar glob pattern, sorted.
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// Watchable is implemented by repositories that notice writes made by other
// processes sharing the same storage.
type Watchable interface {
	// Watch emits an Event for every external change to a key matching pattern.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

// EventType represents the kind of change observed on a key.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event is a storage change notification. Value is the new raw text and is
// empty for EventDelete.
type Event struct {
	Type      EventType
	Key       string
	Value     string
	Timestamp time.Time
}

// String implements fmt.Stringer.
func (e Event) String() string {
	return string(e.Type) + " " + e.Key
}

// ValidateKey rejects keys that cannot be stored by every adapter: empty keys,
// path separators and dot segments.
func ValidateKey(key string) error {
	switch {
	case key == "", key == ".", key == "..":
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	case strings.ContainsAny(key, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidKey, key)
	}
	return nil
}
