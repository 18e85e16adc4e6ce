// SPDX-License-Identifier: MIT

package config

import (
	"errors"

	"github.com/ManuGH/playercount/internal/validate"
)

// Validate checks the merged configuration and reports every invalid field.
// The returned error is a validate.ValidationError.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.NotEmpty("dataDir", cfg.DataDir)
	v.LogLevel("logLevel", cfg.LogLevel)
	v.ListenAddr("listenAddr", cfg.ListenAddr)

	v.NotEmpty("catalog.path", cfg.Catalog.Path)

	v.URL("feed.url", cfg.Feed.URL, []string{"http", "https"})
	v.PositiveDuration("feed.timeout", cfg.Feed.Timeout)

	v.OneOf("aggregate.mode", cfg.Aggregate.Mode, []string{"comm_priority", "merge"})

	if cfg.Audit.Enabled {
		v.OneOf("audit.backend", cfg.Audit.Backend, []string{"file", "sqlite", "redis"})
		switch cfg.Audit.Backend {
		case "file":
			v.NotEmpty("audit.path", cfg.Audit.Path)
		case "sqlite":
			v.NotEmpty("audit.sqlitePath", cfg.Audit.SQLitePath)
		case "redis":
			v.HostPort("audit.redisAddr", cfg.Audit.RedisAddr)
			v.NotEmpty("audit.redisPrefix", cfg.Audit.RedisPrefix)
		}
	}

	v.Custom("rateLimit.rpm", cfg.RateLimit.RPM, func(any) error {
		if cfg.RateLimit.RPM < 0 {
			return errors.New("value must be >= 0 (0 disables rate limiting)")
		}
		return nil
	})

	if cfg.Tracing.Enabled {
		v.OneOf("tracing.exporter", cfg.Tracing.Exporter, []string{"grpc", "http"})
		v.NotEmpty("tracing.endpoint", cfg.Tracing.Endpoint)
		v.Ratio("tracing.samplingRate", cfg.Tracing.SamplingRate)
	}

	return v.Err()
}
