// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/playercount/internal/log"
	"github.com/ManuGH/playercount/internal/metrics"
)

const defaultReloadDebounce = 250 * time.Millisecond

type snapshot struct {
	catalog  Catalog
	loadedAt time.Time
}

// Provider serves the most recent successfully loaded catalog snapshot.
type Provider struct {
	path     string
	debounce time.Duration
	logger   zerolog.Logger

	current atomic.Pointer[snapshot]

	mu      sync.Mutex
	lastErr error
}

// NewProvider creates a provider for path and performs the initial load.
// A failed initial load is not fatal: Current reports the error until a
// later reload succeeds.
func NewProvider(path string) *Provider {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	p := &Provider{
		path:     filepath.Clean(path),
		debounce: defaultReloadDebounce,
		logger:   xglog.WithComponent("catalog"),
	}
	_ = p.Reload()
	return p
}

// Path returns the absolute catalog path.
func (p *Provider) Path() string { return p.path }

// Current returns the active catalog snapshot. If no load has ever
// succeeded, it returns the last load error.
func (p *Provider) Current() (Catalog, error) {
	if snap := p.current.Load(); snap != nil {
		return snap.catalog, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastErr != nil {
		return nil, p.lastErr
	}
	return nil, fmt.Errorf("%w: not loaded", ErrCatalogUnavailable)
}

// LoadedAt returns when the active snapshot was loaded (zero if never).
func (p *Provider) LoadedAt() time.Time {
	if snap := p.current.Load(); snap != nil {
		return snap.loadedAt
	}
	return time.Time{}
}

// LastError returns the error of the most recent load attempt, nil if it
// succeeded.
func (p *Provider) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Reload re-reads the catalog file. On failure the previous snapshot stays
// active.
func (p *Provider) Reload() error {
	cat, err := Load(p.path)

	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()

	metrics.RecordCatalogReload(err == nil)
	if err != nil {
		p.logger.Warn().
			Err(err).
			Str("event", "catalog.reload_failed").
			Str(xglog.FieldPath, p.path).
			Bool("has_previous", p.current.Load() != nil).
			Msg("catalog reload failed, keeping previous snapshot")
		return err
	}

	p.current.Store(&snapshot{catalog: cat, loadedAt: time.Now()})
	metrics.SetCatalogTitles(len(cat))
	p.logger.Info().
		Str("event", "catalog.reloaded").
		Str(xglog.FieldPath, p.path).
		Int("titles", len(cat)).
		Msg("catalog loaded")
	return nil
}

// Watch reloads the catalog whenever its file is written, created or
// replaced. The parent directory is watched so editors that save through
// rename are picked up. Watch blocks until ctx is cancelled.
func (p *Provider) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	defer func() {
		if cerr := watcher.Close(); cerr != nil {
			p.logger.Debug().Err(cerr).Msg("close catalog watcher")
		}
	}()

	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return fmt.Errorf("watch catalog dir: %w", err)
	}

	p.logger.Info().
		Str("event", "catalog.watch_started").
		Str(xglog.FieldPath, p.path).
		Msg("watching catalog for changes")

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != p.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				pending = time.After(p.debounce)
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(werr, fsnotify.ErrEventOverflow) {
				pending = time.After(p.debounce)
			}
			p.logger.Warn().Err(werr).Str("event", "catalog.watch_error").Msg("catalog watcher error")

		case <-pending:
			pending = nil
			_ = p.Reload()
		}
	}
}
