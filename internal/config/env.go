// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/playercount/internal/log"
	"github.com/ManuGH/playercount/internal/validate"
)

// redactedEnv holds keys whose values may carry credentials.
var redactedEnv = map[string]bool{
	EnvFeedURL:        true,
	EnvAuditRedisAddr: true,
}

// envReader applies PLAYERCOUNT_* overrides on top of the file and default
// values. Unset and empty variables keep the current value. Malformed values
// are recorded against the variable name and leave the current value as is.
type envReader struct {
	logger   zerolog.Logger
	consumed map[string]struct{}
	errs     *validate.Validator
}

func newEnvReader(consumed map[string]struct{}) *envReader {
	return &envReader{
		logger:   log.WithComponent("config"),
		consumed: consumed,
		errs:     validate.New(),
	}
}

// lookup returns the trimmed value of key and whether it overrides.
func (r *envReader) lookup(key string) (string, bool) {
	r.consumed[key] = struct{}{}
	raw, ok := os.LookupEnv(key)
	v := strings.TrimSpace(raw)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *envReader) applied(key, value string) {
	ev := r.logger.Debug().
		Str(log.FieldEvent, "config.env_override").
		Str("key", key)
	if redactedEnv[key] {
		ev = ev.Bool("redacted", true)
	} else {
		ev = ev.Str("value", value)
	}
	ev.Msg("environment override applied")
}

func (r *envReader) reject(key, value, message string) {
	r.logger.Warn().
		Str(log.FieldEvent, "config.env_invalid").
		Str("key", key).
		Str("value", value).
		Msg(message)
	r.errs.AddError(key, message, value)
}

func (r *envReader) str(key, cur string) string {
	v, ok := r.lookup(key)
	if !ok {
		return cur
	}
	r.applied(key, v)
	return v
}

func (r *envReader) boolean(key string, cur bool) bool {
	v, ok := r.lookup(key)
	if !ok {
		return cur
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		r.applied(key, v)
		return true
	case "false", "0", "no", "off":
		r.applied(key, v)
		return false
	}
	r.reject(key, v, "invalid boolean (want true/false, 1/0, yes/no, on/off)")
	return cur
}

func (r *envReader) integer(key string, cur int) int {
	v, ok := r.lookup(key)
	if !ok {
		return cur
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.reject(key, v, "invalid integer")
		return cur
	}
	r.applied(key, v)
	return n
}

func (r *envReader) duration(key string, cur time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok {
		return cur
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.reject(key, v, "invalid duration (e.g. 10s, 1m30s)")
		return cur
	}
	r.applied(key, v)
	return d
}

func (r *envReader) float(key string, cur float64) float64 {
	v, ok := r.lookup(key)
	if !ok {
		return cur
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.reject(key, v, "invalid number")
		return cur
	}
	r.applied(key, v)
	return f
}

// Err returns a validate.ValidationError naming every malformed variable.
func (r *envReader) Err() error {
	return r.errs.Err()
}
