// SPDX-License-Identifier: MIT

// Package config loads the daemon configuration.
//
// Precedence is ENV > file > defaults. The file is strict YAML: unknown keys
// fail the load instead of being ignored.
package config

import "time"

// AppConfig is the effective configuration after all sources are merged.
type AppConfig struct {
	Version    string
	DataDir    string
	LogLevel   string
	ListenAddr string

	Catalog   CatalogConfig
	Feed      FeedConfig
	Aggregate AggregateConfig
	Audit     AuditConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
}

// CatalogConfig locates the title catalog.
type CatalogConfig struct {
	Path  string
	Watch bool
}

// FeedConfig describes the upstream stats feed.
type FeedConfig struct {
	URL     string
	Timeout time.Duration
}

// AggregateConfig selects the count combination mode.
type AggregateConfig struct {
	Mode string
}

// AuditConfig selects and configures the unmatched-ID log.
type AuditConfig struct {
	Enabled     bool
	Backend     string
	Path        string
	Timestamps  bool
	SQLitePath  string
	RedisAddr   string
	RedisPrefix string
}

// RateLimitConfig bounds per-client request rates on the HTTP surface.
type RateLimitConfig struct {
	RPM int
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
}

// FileConfig mirrors the YAML file. Pointer fields distinguish "unset" from
// an explicit zero value.
type FileConfig struct {
	DataDir    string `yaml:"dataDir,omitempty"`
	LogLevel   string `yaml:"logLevel,omitempty"`
	ListenAddr string `yaml:"listenAddr,omitempty"`

	Catalog   CatalogFileConfig   `yaml:"catalog,omitempty"`
	Feed      FeedFileConfig      `yaml:"feed,omitempty"`
	Aggregate AggregateFileConfig `yaml:"aggregate,omitempty"`
	Audit     AuditFileConfig     `yaml:"audit,omitempty"`
	RateLimit RateLimitFileConfig `yaml:"rateLimit,omitempty"`
	Tracing   TracingFileConfig   `yaml:"tracing,omitempty"`
}

type CatalogFileConfig struct {
	Path  string `yaml:"path,omitempty"`
	Watch *bool  `yaml:"watch,omitempty"`
}

type FeedFileConfig struct {
	URL     string `yaml:"url,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
}

type AggregateFileConfig struct {
	Mode string `yaml:"mode,omitempty"`
}

type AuditFileConfig struct {
	Enabled     *bool  `yaml:"enabled,omitempty"`
	Backend     string `yaml:"backend,omitempty"`
	Path        string `yaml:"path,omitempty"`
	Timestamps  *bool  `yaml:"timestamps,omitempty"`
	SQLitePath  string `yaml:"sqlitePath,omitempty"`
	RedisAddr   string `yaml:"redisAddr,omitempty"`
	RedisPrefix string `yaml:"redisPrefix,omitempty"`
}

type RateLimitFileConfig struct {
	RPM *int `yaml:"rpm,omitempty"`
}

type TracingFileConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}
