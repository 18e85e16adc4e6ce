// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names. Every key the loader consults is listed here.
const (
	EnvDataDir          = "PLAYERCOUNT_DATA"
	EnvLogLevel         = "PLAYERCOUNT_LOG_LEVEL"
	EnvListenAddr       = "PLAYERCOUNT_LISTEN"
	EnvCatalogPath      = "PLAYERCOUNT_CATALOG"
	EnvCatalogWatch     = "PLAYERCOUNT_CATALOG_WATCH"
	EnvFeedURL          = "PLAYERCOUNT_FEED_URL"
	EnvFeedTimeout      = "PLAYERCOUNT_FEED_TIMEOUT"
	EnvAggregateMode    = "PLAYERCOUNT_AGGREGATE_MODE"
	EnvAuditEnabled     = "PLAYERCOUNT_AUDIT_ENABLED"
	EnvAuditBackend     = "PLAYERCOUNT_AUDIT_BACKEND"
	EnvAuditPath        = "PLAYERCOUNT_AUDIT_PATH"
	EnvAuditTimestamps  = "PLAYERCOUNT_AUDIT_TIMESTAMPS"
	EnvAuditSQLite      = "PLAYERCOUNT_AUDIT_SQLITE"
	EnvAuditRedisAddr   = "PLAYERCOUNT_AUDIT_REDIS_ADDR"
	EnvAuditRedisPrefix = "PLAYERCOUNT_AUDIT_REDIS_PREFIX"
	EnvRateLimitRPM     = "PLAYERCOUNT_RATE_LIMIT_RPM"
	EnvTracingEnabled   = "PLAYERCOUNT_TRACING_ENABLED"
	EnvTracingExporter  = "PLAYERCOUNT_TRACING_EXPORTER"
	EnvTracingEndpoint  = "PLAYERCOUNT_TRACING_ENDPOINT"
	EnvTracingSampling  = "PLAYERCOUNT_TRACING_SAMPLING"
)

// File names derived from DataDir when the corresponding path is unset.
const (
	DefaultCatalogFile = "games.json"
	DefaultAuditFile   = "missing_ids.txt"
	DefaultSQLiteFile  = "audit.db"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order: defaults -> strict file -> env -> derived paths -> Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	if err := l.mergeEnvConfig(&cfg); err != nil {
		return cfg, fmt.Errorf("environment overrides: %w", err)
	}

	if abs, err := filepath.Abs(cfg.DataDir); err == nil && cfg.DataDir != "" {
		cfg.DataDir = abs
	}
	deriveDataPaths(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Defaults returns the built-in configuration. Data file paths stay empty
// and are derived from DataDir after all sources are merged.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:    "/tmp/playercount",
		LogLevel:   "info",
		ListenAddr: ":8080",
		Catalog:    CatalogConfig{Watch: true},
		Feed:       FeedConfig{Timeout: 10 * time.Second},
		Aggregate:  AggregateConfig{Mode: "comm_priority"},
		Audit: AuditConfig{
			Enabled:     true,
			Backend:     "file",
			RedisPrefix: "playercount:audit",
		},
		RateLimit: RateLimitConfig{RPM: 120},
		Tracing: TracingConfig{
			Exporter:     "http",
			Endpoint:     "localhost:4318",
			SamplingRate: 1.0,
		},
	}
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return parseFile(data)
}

func parseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, src *FileConfig) error {
	setString(&cfg.DataDir, src.DataDir)
	setString(&cfg.LogLevel, src.LogLevel)
	setString(&cfg.ListenAddr, src.ListenAddr)

	setString(&cfg.Catalog.Path, src.Catalog.Path)
	setPtr(&cfg.Catalog.Watch, src.Catalog.Watch)

	setString(&cfg.Feed.URL, src.Feed.URL)
	if src.Feed.Timeout != "" {
		d, err := time.ParseDuration(src.Feed.Timeout)
		if err != nil {
			return fmt.Errorf("feed.timeout: %w", err)
		}
		cfg.Feed.Timeout = d
	}

	setString(&cfg.Aggregate.Mode, src.Aggregate.Mode)

	setPtr(&cfg.Audit.Enabled, src.Audit.Enabled)
	setString(&cfg.Audit.Backend, src.Audit.Backend)
	setString(&cfg.Audit.Path, src.Audit.Path)
	setPtr(&cfg.Audit.Timestamps, src.Audit.Timestamps)
	setString(&cfg.Audit.SQLitePath, src.Audit.SQLitePath)
	setString(&cfg.Audit.RedisAddr, src.Audit.RedisAddr)
	setString(&cfg.Audit.RedisPrefix, src.Audit.RedisPrefix)

	setPtr(&cfg.RateLimit.RPM, src.RateLimit.RPM)

	setPtr(&cfg.Tracing.Enabled, src.Tracing.Enabled)
	setString(&cfg.Tracing.Exporter, src.Tracing.Exporter)
	setString(&cfg.Tracing.Endpoint, src.Tracing.Endpoint)
	setPtr(&cfg.Tracing.SamplingRate, src.Tracing.SamplingRate)
	return nil
}

// mergeEnvConfig applies PLAYERCOUNT_* overrides. Every malformed variable
// is reported in one validate.ValidationError.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) error {
	env := newEnvReader(l.ConsumedEnvKeys)

	cfg.DataDir = env.str(EnvDataDir, cfg.DataDir)
	cfg.LogLevel = env.str(EnvLogLevel, cfg.LogLevel)
	cfg.ListenAddr = env.str(EnvListenAddr, cfg.ListenAddr)

	cfg.Catalog.Path = env.str(EnvCatalogPath, cfg.Catalog.Path)
	cfg.Catalog.Watch = env.boolean(EnvCatalogWatch, cfg.Catalog.Watch)

	cfg.Feed.URL = env.str(EnvFeedURL, cfg.Feed.URL)
	cfg.Feed.Timeout = env.duration(EnvFeedTimeout, cfg.Feed.Timeout)

	cfg.Aggregate.Mode = strings.ToLower(env.str(EnvAggregateMode, cfg.Aggregate.Mode))

	cfg.Audit.Enabled = env.boolean(EnvAuditEnabled, cfg.Audit.Enabled)
	cfg.Audit.Backend = strings.ToLower(env.str(EnvAuditBackend, cfg.Audit.Backend))
	cfg.Audit.Path = env.str(EnvAuditPath, cfg.Audit.Path)
	cfg.Audit.Timestamps = env.boolean(EnvAuditTimestamps, cfg.Audit.Timestamps)
	cfg.Audit.SQLitePath = env.str(EnvAuditSQLite, cfg.Audit.SQLitePath)
	cfg.Audit.RedisAddr = env.str(EnvAuditRedisAddr, cfg.Audit.RedisAddr)
	cfg.Audit.RedisPrefix = env.str(EnvAuditRedisPrefix, cfg.Audit.RedisPrefix)

	cfg.RateLimit.RPM = env.integer(EnvRateLimitRPM, cfg.RateLimit.RPM)

	cfg.Tracing.Enabled = env.boolean(EnvTracingEnabled, cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = strings.ToLower(env.str(EnvTracingExporter, cfg.Tracing.Exporter))
	cfg.Tracing.Endpoint = env.str(EnvTracingEndpoint, cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = env.float(EnvTracingSampling, cfg.Tracing.SamplingRate)

	return env.Err()
}

func deriveDataPaths(cfg *AppConfig) {
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = filepath.Join(cfg.DataDir, DefaultCatalogFile)
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = filepath.Join(cfg.DataDir, DefaultAuditFile)
	}
	if cfg.Audit.SQLitePath == "" {
		cfg.Audit.SQLitePath = filepath.Join(cfg.DataDir, DefaultSQLiteFile)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
