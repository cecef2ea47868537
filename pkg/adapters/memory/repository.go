// Package memory implements an in-process core.Repository.
//
// It stands in for storage shared with other processes: Inject and
// InjectDelete apply a change as if another process had made it, and emit the
// corresponding watch events. Local Set and Delete calls never notify watchers,
// mirroring how a process is not told about its own writes. Fault hooks make
// failure paths reproducible.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/notekeep/pkg/core"
)

// FaultFunc decides whether an operation on key fails.
type FaultFunc func(key string) error

type watcher struct {
	pattern string
	ch      chan core.Event
}

// Repository is a map-backed core.Repository.
type Repository struct {
	mu       sync.RWMutex
	data     map[string]string
	watchers map[*watcher]struct{}

	failGet    FaultFunc
	failSet    FaultFunc
	failDelete FaultFunc
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{
		data:     make(map[string]string),
		watchers: make(map[*watcher]struct{}),
	}
}

// Initialize implements core.Repository.
func (r *Repository) Initialize(ctx context.Context) error {
	return nil
}

// Get implements core.Repository.
func (r *Repository) Get(ctx context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.failGet != nil {
		if err := r.failGet(key); err != nil {
			return "", err
		}
	}
	v, ok := r.data[key]
	if !ok {
		return "", core.ErrNotFound
	}
	return v, nil
}

// Set implements core.Repository.
func (r *Repository) Set(ctx context.Context, key, value string) error {
	if err := core.ValidateKey(key); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSet != nil {
		if err := r.failSet(key); err != nil {
			return err
		}
	}
	r.data[key] = value
	return nil
}

// Delete implements core.Repository.
func (r *Repository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete != nil {
		if err := r.failDelete(key); err != nil {
			return err
		}
	}
	delete(r.data, key)
	return nil
}

// Keys implements core.Lister.
func (r *Repository) Keys(ctx context.Context, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, doublestar.ErrBadPattern
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var keys []string
	for k := range r.data {
		if ok, _ := doublestar.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Watch implements core.Watchable. Events are buffered; when a slow consumer
// lets the buffer fill up, further events are dropped.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, doublestar.ErrBadPattern
	}
	w := &watcher{pattern: pattern, ch: make(chan core.Event, 64)}

	r.mu.Lock()
	r.watchers[w] = struct{}{}
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.watchers, w)
		close(w.ch)
		r.mu.Unlock()
	}()
	return w.ch, nil
}

// Inject stores value as if written by another process and notifies watchers.
func (r *Repository) Inject(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	eType := core.EventModify
	if _, ok := r.data[key]; !ok {
		eType = core.EventCreate
	}
	r.data[key] = value
	r.notify(core.Event{Type: eType, Key: key, Value: value, Timestamp: time.Now()})
}

// InjectDelete removes key as if deleted by another process and notifies watchers.
func (r *Repository) InjectDelete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, key)
	r.notify(core.Event{Type: core.EventDelete, Key: key, Timestamp: time.Now()})
}

// notify must be called with r.mu held.
func (r *Repository) notify(e core.Event) {
	for w := range r.watchers {
		if ok, _ := doublestar.Match(w.pattern, e.Key); !ok {
			continue
		}
		select {
		case w.ch <- e:
		default:
		}
	}
}

// Raw returns the stored text for key without going through fault hooks.
func (r *Repository) Raw(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.data[key]
	return v, ok
}

// Len returns the number of stored keys.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// FailGet installs a fault hook for Get. Nil clears it.
func (r *Repository) FailGet(fn FaultFunc) {
	r.mu.Lock()
	r.failGet = fn
	r.mu.Unlock()
}

// FailSet installs a fault hook for Set. Nil clears it.
func (r *Repository) FailSet(fn FaultFunc) {
	r.mu.Lock()
	r.failSet = fn
	r.mu.Unlock()
}

// FailDelete installs a fault hook for Delete. Nil clears it.
func (r *Repository) FailDelete(fn FaultFunc) {
	r.mu.Lock()
	r.failDelete = fn
	r.mu.Unlock()
}
