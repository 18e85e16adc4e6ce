// SPDX-License-Identifier: MIT

package audit

import (
	"context"
	"slices"
	"time"

	xglog "github.com/ManuGH/playercount/internal/log"
	"github.com/rs/zerolog"
)

// EventType names an operator-facing audit event.
type EventType string

const (
	EventRecorded     EventType = "audit.recorded"
	EventNewUnmatched EventType = "audit.unmatched_new"
	EventWriteFailed  EventType = "audit.write_failed"
)

// Event is one structured audit log record.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Backend   string
	RunID     string
	RawID     string
	Family    string
	Report    *Report
	Err       error
}

// Events writes audit events on the dedicated "audit" component. These lines
// go to the operator log only and are never shown to end users.
type Events struct {
	logger zerolog.Logger
}

// NewEvents creates an event logger tagged with log_type=audit.
func NewEvents() *Events {
	return &Events{
		logger: xglog.WithComponent("audit").With().
			Str("log_type", "audit").
			Logger(),
	}
}

// Log writes ev. Write failures are logged at error level, everything else
// at info.
func (e *Events) Log(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	logger := e.logger
	if reqID := xglog.RequestIDFromContext(ctx); reqID != "" {
		logger = logger.With().Str(xglog.FieldRequestID, reqID).Logger()
	}

	le := logger.Info()
	if ev.Err != nil {
		le = logger.Error().Err(ev.Err)
	}
	le = le.
		Str(xglog.FieldEvent, string(ev.Type)).
		Time("timestamp", ev.Timestamp)

	if ev.Backend != "" {
		le = le.Str(xglog.FieldBackend, ev.Backend)
	}
	if ev.RunID != "" {
		le = le.Str(xglog.FieldRunID, ev.RunID)
	}
	if ev.RawID != "" {
		le = le.Str(xglog.FieldRawID, ev.RawID)
	}
	if ev.Family != "" {
		le = le.Str(xglog.FieldFamily, ev.Family)
	}
	if ev.Report != nil {
		le = le.
			Int("matched", ev.Report.MatchedTotal()).
			Int("unmatched", ev.Report.UnmatchedTotal()).
			Int("appended", len(ev.Report.Appended)).
			Int("incremented", len(ev.Report.Incremented))
	}
	le.Msg("audit event")
}

// Recorded logs a completed audit pass plus one line per newly appended
// raw ID.
func (e *Events) Recorded(ctx context.Context, backend, runID string, report Report) {
	e.Log(ctx, Event{Type: EventRecorded, Backend: backend, RunID: runID, Report: &report})
	logged := make(map[string]bool, len(report.Appended))
	for _, family := range Families {
		for _, raw := range report.Unmatched[family] {
			if logged[raw] || !slices.Contains(report.Appended, raw) {
				continue
			}
			logged[raw] = true
			e.Log(ctx, Event{Type: EventNewUnmatched, Backend: backend, RunID: runID, RawID: raw, Family: string(family)})
		}
	}
}

// WriteFailed logs a failed persistence attempt.
func (e *Events) WriteFailed(ctx context.Context, backend, runID string, err error) {
	e.Log(ctx, Event{Type: EventWriteFailed, Backend: backend, RunID: runID, Err: err})
}

