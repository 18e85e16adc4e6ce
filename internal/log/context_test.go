// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func captureBase(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "test"})
	t.Cleanup(func() { Configure(Config{}) })
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestContextWithRequestID(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		requestID string
		want      string
	}{
		{
			name:      "nil context",
			ctx:       nil,
			requestID: "test-id-123",
			want:      "test-id-123",
		},
		{
			name:      "background context",
			ctx:       context.Background(),
			requestID: "req-456",
			want:      "req-456",
		},
		{
			name:      "empty request ID",
			ctx:       context.Background(),
			requestID: "",
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRequestID(tt.ctx, tt.requestID)
			got := RequestIDFromContext(ctx)
			if got != tt.want {
				t.Errorf("RequestIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContextWithRunID(t *testing.T) {
	ctx := ContextWithRunID(nil, "run-1") //nolint:staticcheck // nil context is handled
	if got := RunIDFromContext(ctx); got != "run-1" {
		t.Errorf("RunIDFromContext() = %v, want run-1", got)
	}
	if got := RunIDFromContext(context.Background()); got != "" {
		t.Errorf("RunIDFromContext(empty) = %v, want empty", got)
	}
}

func TestRequestIDFromContextEmpty(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{
			name: "nil context",
			ctx:  nil,
			want: "",
		},
		{
			name: "context without request ID",
			ctx:  context.Background(),
			want: "",
		},
		{
			name: "context with wrong type",
			ctx:  context.WithValue(context.Background(), requestIDKey, 123),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RequestIDFromContext(tt.ctx)
			if got != tt.want {
				t.Errorf("RequestIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithContext_AddsCorrelationFields(t *testing.T) {
	buf := captureBase(t)

	ctx := ContextWithRequestID(context.Background(), "req-123")
	ctx = ContextWithRunID(ctx, "run-456")
	l := WithContext(ctx, WithComponent("test"))
	l.Info().Msg("hello")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0][FieldRequestID] != "req-123" {
		t.Errorf("request_id = %v", lines[0][FieldRequestID])
	}
	if lines[0][FieldRunID] != "run-456" {
		t.Errorf("run_id = %v", lines[0][FieldRunID])
	}
	if lines[0][FieldComponent] != "test" {
		t.Errorf("component = %v", lines[0][FieldComponent])
	}
	if lines[0]["service"] != "test" {
		t.Errorf("service = %v", lines[0]["service"])
	}
}

func TestWithContext_EmptyContextKeepsLogger(t *testing.T) {
	baseLogger := WithComponent("test")
	l := WithContext(context.Background(), baseLogger)
	if l.GetLevel() != baseLogger.GetLevel() {
		t.Error("Logger level should be preserved")
	}
}

func TestConfigure_ParsesLevel(t *testing.T) {
	Configure(Config{Level: "warn", Output: &bytes.Buffer{}})
	t.Cleanup(func() { Configure(Config{}) })
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("global level = %v, want warn", zerolog.GlobalLevel())
	}
}

func TestDerive(t *testing.T) {
	buf := captureBase(t)

	l := Derive(func(ctx *zerolog.Context) {
		ctx.Str("custom_field", "test_value")
	})
	l.Info().Msg("derived")
	Derive(nil).Info().Msg("plain")

	lines := decodeLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["custom_field"] != "test_value" {
		t.Errorf("custom_field = %v", lines[0]["custom_field"])
	}
}

func TestWithTraceContext(t *testing.T) {
	buf := captureBase(t)

	// No span: no trace fields.
	WithTraceContext(context.Background()).Info().Msg("no span")

	// Noop tracer: invalid span context, no trace fields.
	noopTracer := noop.NewTracerProvider().Tracer("test")
	ctx, span := noopTracer.Start(context.Background(), "test-span")
	defer span.End()
	WithTraceContext(ctx).Info().Msg("noop span")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	WithTraceContext(trace.ContextWithSpanContext(context.Background(), spanCtx)).Info().Msg("with span")

	lines := decodeLines(t, buf)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if _, ok := lines[0]["trace_id"]; ok {
		t.Error("unexpected trace_id without span")
	}
	if _, ok := lines[1]["trace_id"]; ok {
		t.Error("unexpected trace_id for noop span")
	}
	if lines[2]["trace_id"] != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace_id = %v", lines[2]["trace_id"])
	}
	if lines[2]["span_id"] != "00f067aa0ba902b7" {
		t.Errorf("span_id = %v", lines[2]["span_id"])
	}
}

func TestFromContext_FallsBackToBase(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil {
		t.Fatal("expected logger")
	}
	if l.GetLevel() == zerolog.Disabled {
		t.Error("fallback logger must not be disabled")
	}
}

func TestMiddleware_LogsRequest(t *testing.T) {
	buf := captureBase(t)

	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Debug().Msg("inside handler")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/players", nil)
	req = req.WithContext(ContextWithRequestID(req.Context(), "req-9"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	lines := decodeLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}
	if lines[0][FieldRequestID] != "req-9" {
		t.Errorf("handler logger missing request_id: %v", lines[0])
	}
	access := lines[1]
	if access[FieldEvent] != "request.handled" {
		t.Errorf("event = %v", access[FieldEvent])
	}
	if access["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v", access["status"])
	}
	if access["level"] != "warn" {
		t.Errorf("level = %v", access["level"])
	}
	if access["bytes"] != float64(len("short and stout")) {
		t.Errorf("bytes = %v", access["bytes"])
	}
}
