package platform

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/notekeep/pkg/bridge"
	"github.com/aretw0/notekeep/pkg/core"
	"github.com/aretw0/notekeep/pkg/service"
	"github.com/aretw0/notekeep/pkg/storage"
)

// ErrFlushFailed is returned by Close when the final write did not succeed.
// The error bus carries the details.
var ErrFlushFailed = errors.New("final write failed")

// Notebook is an open notes service together with the repository it owns.
type Notebook struct {
	*service.Service

	repo   core.Repository
	logger *slog.Logger
	cancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// Open initializes the repository for uri, boots a service over it and,
// when watching is enabled, starts applying changes made by other processes.
//
//	nb, err := notekeep.Open(ctx, "./notes", notekeep.WithAdapter("sqlite"))
func Open(ctx context.Context, uri string, opts ...Option) (*Notebook, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	repo, err := initRepository(ctx, uri, o)
	if err != nil {
		return nil, err
	}

	aopts := []storage.Option{storage.WithLogger(logger)}
	if o.now != nil {
		aopts = append(aopts, storage.WithClock(o.now))
	}
	if o.scheduler != nil {
		aopts = append(aopts, storage.WithScheduler(o.scheduler))
	}
	adapter := storage.New(repo, aopts...)
	if o.errorHandler != nil {
		adapter.SubscribeToErrors(o.errorHandler)
	}

	var bopts []bridge.Option
	if o.key != "" {
		bopts = append(bopts, bridge.WithKey(o.key))
	}
	if o.debounce > 0 {
		bopts = append(bopts, bridge.WithDebounce(o.debounce))
	}

	sopts := []service.Option{
		service.WithLogger(logger),
		service.WithLanguage(o.lang),
		service.WithBridge(bopts...),
	}
	if o.now != nil {
		sopts = append(sopts, service.WithClock(o.now))
	}
	if o.newID != nil {
		sopts = append(sopts, service.WithIDGenerator(o.newID))
	}

	svc, err := service.New(ctx, adapter, sopts...)
	if err != nil {
		closeRepository(repo)
		return nil, err
	}

	nb := &Notebook{Service: svc, repo: repo, logger: logger}
	if o.watch {
		if err := nb.startWatch(); err != nil {
			svc.Close(ctx)
			closeRepository(repo)
			return nil, err
		}
	}
	return nb, nil
}

// Repository returns the repository backing the notebook.
func (n *Notebook) Repository() core.Repository {
	return n.repo
}

// Watching reports whether changes from other processes are being applied.
func (n *Notebook) Watching() bool {
	return n.cancel != nil
}

// Close stops watching, flushes the pending write and releases the
// repository. It is safe to call more than once.
func (n *Notebook) Close(ctx context.Context) error {
	n.closeOnce.Do(func() {
		if n.cancel != nil {
			n.cancel()
		}
		if !n.Service.Close(ctx) {
			n.closeErr = ErrFlushFailed
		}
		if err := closeRepository(n.repo); err != nil {
			n.closeErr = errors.Join(n.closeErr, err)
		}
	})
	return n.closeErr
}

func (n *Notebook) startWatch() error {
	ctx, cancel := context.WithCancel(context.Background())
	if err := n.Service.Watch(ctx); err != nil {
		cancel()
		return err
	}
	n.cancel = cancel
	n.logger.Debug("watching for external changes", "key", n.Bridge().Key())
	return nil
}

func closeRepository(repo core.Repository) error {
	if c, ok := repo.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
