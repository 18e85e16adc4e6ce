// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/playercount/internal/aggregate"
	"github.com/ManuGH/playercount/internal/api"
	"github.com/ManuGH/playercount/internal/audit"
	"github.com/ManuGH/playercount/internal/catalog"
	"github.com/ManuGH/playercount/internal/config"
	"github.com/ManuGH/playercount/internal/daemon"
	"github.com/ManuGH/playercount/internal/feed"
	"github.com/ManuGH/playercount/internal/health"
	xglog "github.com/ManuGH/playercount/internal/log"
	"github.com/ManuGH/playercount/internal/reconcile"
	"github.com/ManuGH/playercount/internal/telemetry"
)

const serviceName = "playercount"

// resolveConfigPath returns the explicit path, or ${PLAYERCOUNT_DATA}/config.yaml
// when that file exists.
func resolveConfigPath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(os.Getenv(config.EnvDataDir))
	if dataDir == "" {
		dataDir = config.Defaults().DataDir
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

func loadConfig(explicit string) (config.AppConfig, string, error) {
	path := resolveConfigPath(explicit)
	cfg, err := config.NewLoader(path, version).Load()
	if err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

// runtime holds the wired collaborators shared by serve and once.
type runtime struct {
	cfg      config.AppConfig
	catalog  *catalog.Provider
	store    audit.Store
	pipeline *reconcile.Pipeline
	health   *health.Manager
	tracing  *telemetry.Provider
}

func buildRuntime(ctx context.Context, cfg config.AppConfig) (*runtime, error) {
	logger := xglog.WithComponent("daemon")

	mode, err := aggregate.ParseMode(cfg.Aggregate.Mode)
	if err != nil {
		return nil, err
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	provider := catalog.NewProvider(cfg.Catalog.Path)
	if err := provider.Reload(); err != nil {
		// Not fatal: the watcher or a SIGHUP can still bring the catalog in.
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "catalog.initial_load_failed").
			Str(xglog.FieldPath, cfg.Catalog.Path).
			Msg("initial catalog load failed")
	}

	rt := &runtime{
		cfg:     cfg,
		catalog: provider,
		health:  health.NewManager(cfg.Version),
		tracing: tp,
	}
	rt.health.RegisterChecker(health.NewCatalogChecker(provider))

	backend := ""
	if cfg.Audit.Enabled {
		b, err := audit.ParseBackend(cfg.Audit.Backend)
		if err != nil {
			_ = tp.Shutdown(ctx)
			return nil, err
		}
		backend = string(b)
		store, err := audit.Open(ctx, audit.StoreConfig{
			Backend:     b,
			Path:        cfg.Audit.Path,
			SQLitePath:  cfg.Audit.SQLitePath,
			RedisAddr:   cfg.Audit.RedisAddr,
			RedisPrefix: cfg.Audit.RedisPrefix,
		})
		if err != nil {
			_ = tp.Shutdown(ctx)
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		rt.store = store
		rt.health.RegisterChecker(auditChecker(b, store))
	}

	fetcher := feed.New(cfg.Feed.URL, cfg.Feed.Timeout)
	rt.pipeline = reconcile.New(provider, fetcher, rt.store, reconcile.Options{
		Mode:       mode,
		Timestamps: cfg.Audit.Timestamps,
		Backend:    backend,
	})
	return rt, nil
}

func auditChecker(b audit.Backend, store audit.Store) health.Checker {
	switch s := store.(type) {
	case *audit.SQLiteStore:
		return health.NewSQLiteChecker(s.DB())
	case *audit.RedisStore:
		return health.NewRedisChecker(s.Client())
	default:
		return health.NewAuditLogChecker(string(b), func(ctx context.Context) (int, error) {
			l, err := store.Load(ctx)
			return l.Len(), err
		})
	}
}

// close releases the audit store and flushes traces.
func (rt *runtime) close(ctx context.Context) error {
	var errs []error
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close audit store: %w", err))
		}
	}
	if err := rt.tracing.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
	}
	return errors.Join(errs...)
}

func serve(ctx context.Context, configPath string) error {
	logger := xglog.WithComponent("daemon")

	cfg, path, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration (%s): %w", displayPath(path), err)
	}
	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: serviceName, Version: cfg.Version})
	logger = xglog.WithComponent("daemon")
	logger.Info().
		Str(xglog.FieldEvent, "config.loaded").
		Str("source", configSource(path)).
		Str(xglog.FieldPath, path).
		Msg("configuration loaded")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return fmt.Errorf("startup checks: %w", err)
	}

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}

	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Str(xglog.FieldFeedURL, maskURL(cfg.Feed.URL)).
		Str("catalog", cfg.Catalog.Path).
		Str("mode", cfg.Aggregate.Mode).
		Bool("audit", cfg.Audit.Enabled).
		Str(xglog.FieldBackend, cfg.Audit.Backend).
		Msg("starting playercount")

	tracingService := ""
	if cfg.Tracing.Enabled {
		tracingService = serviceName
	}
	srv := api.New(rt.pipeline, rt.health, api.Config{
		RateLimitRPM:   cfg.RateLimit.RPM,
		TracingService: tracingService,
		AuditBackend:   cfg.Audit.Backend,
		AuditEnabled:   cfg.Audit.Enabled,
	})

	mgr, err := daemon.NewManager(daemon.DefaultServerConfig(cfg.ListenAddr), daemon.Deps{
		Logger:     logger,
		APIHandler: srv.Handler(),
	})
	if err != nil {
		_ = rt.close(ctx)
		return err
	}
	mgr.RegisterShutdownHook("runtime", rt.close)

	return daemon.NewApp(logger, mgr, rt.catalog, cfg.Catalog.Watch).Run(ctx)
}

func configSource(path string) string {
	if path == "" {
		return "env+defaults"
	}
	return "file"
}

func displayPath(path string) string {
	if path == "" {
		return "env+defaults"
	}
	return path
}
