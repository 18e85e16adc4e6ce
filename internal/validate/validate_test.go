// SPDX-License-Identifier: MIT

package validate

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_URL(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{name: "valid https", value: "https://stats.example.org/api/stats"},
		{name: "valid http with port", value: "http://127.0.0.1:31313/stats"},
		{name: "empty", value: "", wantErr: "cannot be empty"},
		{name: "bad scheme", value: "ftp://example.org", wantErr: "unsupported URL scheme"},
		{name: "no host", value: "http:///path", wantErr: "must have a host"},
		{name: "relative", value: "stats.json", wantErr: "unsupported URL scheme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("feed.url", tt.value, []string{"http", "https"})
			if tt.wantErr == "" {
				assert.True(t, v.IsValid(), v.Err())
				return
			}
			require.False(t, v.IsValid())
			assert.Contains(t, v.Errors()[0].Message, tt.wantErr)
		})
	}
}

func TestValidator_ListenAddr(t *testing.T) {
	for addr, ok := range map[string]bool{
		":8080":           true,
		"127.0.0.1:0":     true,
		"[::1]:443":       true,
		"8080":            false,
		":http":           false,
		"localhost:70000": false,
	} {
		v := New()
		v.ListenAddr("listenAddr", addr)
		assert.Equal(t, ok, v.IsValid(), addr)
	}
}

func TestValidator_HostPort(t *testing.T) {
	for addr, ok := range map[string]bool{
		"localhost:6379": true,
		":6379":          false,
		"localhost":      false,
		"localhost:0":    false,
	} {
		v := New()
		v.HostPort("audit.redisAddr", addr)
		assert.Equal(t, ok, v.IsValid(), addr)
	}
}

func TestValidator_Scalars(t *testing.T) {
	v := New()
	v.NotEmpty("name", "  ")
	v.OneOf("mode", "sum", []string{"comm_priority", "merge"})
	v.Positive("rpm", 0)
	v.PositiveDuration("timeout", -time.Second)
	v.Ratio("samplingRate", 1.5)
	v.Custom("custom", 3, func(any) error { return errors.New("nope") })

	// Valid values add nothing.
	v.NotEmpty("ok", "x")
	v.OneOf("ok", "merge", []string{"comm_priority", "merge"})
	v.Positive("ok", 1)
	v.PositiveDuration("ok", time.Second)
	v.Ratio("ok", 0)

	require.Len(t, v.Errors(), 6)
}

func TestValidationError(t *testing.T) {
	v := New()
	require.NoError(t, v.Err())

	v.AddError("a", "first", nil)
	v.AddError("b", "second", nil)
	err := fmt.Errorf("load config: %w", v.Err())

	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, ve.Fields())
	assert.Len(t, ve.Errors(), 2)
	assert.True(t, strings.Contains(err.Error(), "validation failed for a: first; validation failed for b: second"))

	// Later additions do not leak into an error already returned.
	v.AddError("c", "third", nil)
	assert.Len(t, ve.Errors(), 2)
}

func TestLogLevel(t *testing.T) {
	for _, level := range []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled", " Debug ", "WARN"} {
		v := New()
		v.LogLevel("logLevel", level)
		assert.True(t, v.IsValid(), "level %q", level)
	}

	for _, level := range []string{"", "verbose", "1", "warning"} {
		v := New()
		v.LogLevel("logLevel", level)
		require.False(t, v.IsValid(), "level %q", level)
		assert.Equal(t, "logLevel", v.Errors()[0].Field)
		assert.Contains(t, v.Errors()[0].Message, "trace, debug, info, warn, error, fatal, panic, disabled")
	}
}
