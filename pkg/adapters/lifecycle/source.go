// Package lifecycle exposes storage change events as a lifecycle.Source so
// they can be consumed by the lifecycle event router.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/notekeep/pkg/core"
)

type watchSource struct {
	repo    core.Watchable
	pattern string
	out     chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits every change repo reports
// for keys matching pattern. core.Event satisfies lifecycle.Event.
func NewSource(repo core.Watchable, pattern string) lifecycle.Source {
	return &watchSource{
		repo:    repo,
		pattern: pattern,
		out:     make(chan lifecycle.Event),
	}
}

func (s *watchSource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start subscribes to the repository and forwards until ctx is done or the
// repository closes its channel. Events is closed afterwards.
func (s *watchSource) Start(ctx context.Context) error {
	in, err := s.repo.Watch(ctx, s.pattern)
	if err != nil {
		close(s.out)
		return fmt.Errorf("watch %q: %w", s.pattern, err)
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-in:
				if !ok {
					return nil
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
