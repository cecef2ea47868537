// Package store provides a small observable container around a pure reducer.
package store

import (
	"sync"
	"time"
)

// Reducer computes the state that results from applying cmd at instant now.
// It must not mutate state and reports whether anything changed; when it
// did not, it returns state itself.
type Reducer[S, C any] func(state S, cmd C, now time.Time) (S, bool)

// Origin tells observers why the state changed.
type Origin int

const (
	// OriginDispatch marks a change produced by a command.
	OriginDispatch Origin = iota
	// OriginReplace marks a wholesale replacement (hydration from storage).
	OriginReplace
)

func (o Origin) String() string {
	if o == OriginReplace {
		return "replace"
	}
	return "dispatch"
}

// Observer is notified after every change.
type Observer[S any] func(state S, origin Origin)

type observer[S any] struct {
	id uint64
	fn Observer[S]
}

// Store owns one slice of application state.
type Store[S, C any] struct {
	mu        sync.Mutex
	state     S
	reduce    Reducer[S, C]
	now       func() time.Time
	observers []observer[S]
	nextID    uint64
}

// New creates a store seeded with initial. A nil clock defaults to time.Now.
func New[S, C any](initial S, reduce Reducer[S, C], now func() time.Time) *Store[S, C] {
	if now == nil {
		now = time.Now
	}
	return &Store[S, C]{state: initial, reduce: reduce, now: now}
}

// State returns the current state.
func (s *Store[S, C]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies cmd and returns the resulting state. The clock is read
// exactly once per dispatch. Observers run only when the state changed.
func (s *Store[S, C]) Dispatch(cmd C) S {
	now := s.now()

	s.mu.Lock()
	next, changed := s.reduce(s.state, cmd, now)
	if !changed {
		s.mu.Unlock()
		return next
	}
	s.state = next
	obs := s.snapshot()
	s.mu.Unlock()

	notify(obs, next, OriginDispatch)
	return next
}

// Replace swaps the whole state, bypassing the reducer, and notifies observers.
func (s *Store[S, C]) Replace(state S) {
	s.mu.Lock()
	s.state = state
	obs := s.snapshot()
	s.mu.Unlock()

	notify(obs, state, OriginReplace)
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store[S, C]) Subscribe(fn Observer[S]) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, observer[S]{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store[S, C]) snapshot() []observer[S] {
	obs := make([]observer[S], len(s.observers))
	copy(obs, s.observers)
	return obs
}

func notify[S any](obs []observer[S], state S, origin Origin) {
	for _, o := range obs {
		o.fn(state, origin)
	}
}
