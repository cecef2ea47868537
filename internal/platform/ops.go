package platform

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/aretw0/notekeep/pkg/adapters/fs"
	"github.com/aretw0/notekeep/pkg/adapters/memory"
	"github.com/aretw0/notekeep/pkg/adapters/sqlite"
	"github.com/aretw0/notekeep/pkg/core"
)

// ErrUnknownAdapter is returned for an adapter name Init does not know.
var ErrUnknownAdapter = errors.New("unknown adapter")

// Init builds and initializes the repository for the notebook directory uri.
// An injected repository is initialized and returned as is.
func Init(ctx context.Context, uri string, opts ...Option) (core.Repository, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return initRepository(ctx, uri, o)
}

func initRepository(ctx context.Context, uri string, o *options) (core.Repository, error) {
	repo := o.repository
	if repo == nil {
		var err error
		switch o.adapter {
		case AdapterFS:
			repo = fs.NewRepository(fs.Config{
				Path:         resolveDir(uri, o),
				MustExist:    o.mustExist,
				ReadOnly:     o.readOnly,
				Logger:       o.logger,
				ErrorHandler: o.watchErrors,
			})
		case AdapterSQLite:
			repo, err = sqlite.NewRepository(sqlite.Config{
				Path:         filepath.Join(resolveDir(uri, o), DatabaseFile),
				PollInterval: o.pollInterval,
				Logger:       o.logger,
			})
		case AdapterMemory:
			repo = memory.NewRepository()
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownAdapter, o.adapter)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := repo.Initialize(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// resolveDir applies the development sandbox. Read-only notebooks cannot
// damage the workspace and are never re-rooted.
func resolveDir(uri string, o *options) string {
	bypass := o.readOnly || !o.devSafety
	dev := IsDevRun()
	dir := ResolvePath(uri, o.forceTemp || (dev && !bypass))

	if dev && o.logger != nil {
		switch {
		case o.readOnly:
			o.logger.Debug("running in read-only mode (dev sandbox bypassed)", "path", dir)
		case bypass:
			o.logger.Warn("running in unsafe mode (dev sandbox bypassed)", "path", dir)
		default:
			o.logger.Debug("running in safe mode (dev sandbox enabled)", "path", dir)
		}
	}
	return dir
}
