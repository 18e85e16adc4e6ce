// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// CatalogSource is the reloadable catalog owned by the daemon.
// *catalog.Provider implements it.
type CatalogSource interface {
	Reload() error
	Watch(ctx context.Context) error
}

// App owns the long-lived runtime lifecycle (catalog watcher, reload
// signal) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	catalog      CatalogSource
	watch        bool
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. A nil catalog disables watching and
// signal-triggered reloads.
func NewApp(logger zerolog.Logger, manager Manager, catalog CatalogSource, watch bool) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		catalog:      catalog,
		watch:        watch,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	// The watcher is best-effort: the daemon keeps serving the last snapshot.
	if a.catalog != nil && a.watch {
		g.Go(func() error {
			if err := a.catalog.Watch(ctx); err != nil {
				a.logger.Warn().Err(err).Str("event", "catalog.watcher_failed").Msg("catalog watcher stopped")
			}
			return nil
		})
	}

	if a.catalog != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "catalog.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading catalog")
					// Reload logs its own failure and keeps the previous snapshot.
					_ = a.catalog.Reload()
				}
			}
		})
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}
