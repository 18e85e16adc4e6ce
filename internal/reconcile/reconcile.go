// SPDX-License-Identifier: MIT

// Package reconcile runs one pass of the player-count pipeline: read the
// catalog snapshot, fetch the feed, aggregate, audit unmatched identifiers
// and rank the result.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/playercount/internal/aggregate"
	"github.com/ManuGH/playercount/internal/audit"
	"github.com/ManuGH/playercount/internal/catalog"
	"github.com/ManuGH/playercount/internal/feed"
	xglog "github.com/ManuGH/playercount/internal/log"
	"github.com/ManuGH/playercount/internal/metrics"
	"github.com/ManuGH/playercount/internal/telemetry"
)

// CatalogSource yields the active catalog snapshot.
type CatalogSource interface {
	Current() (catalog.Catalog, error)
}

// Options controls a Pipeline.
type Options struct {
	Mode       aggregate.Mode
	Timestamps bool // stamp audit entries with the pass time
	Backend    string
	Clock      func() time.Time
}

// Outcome is the result of one successful pass.
type Outcome struct {
	RunID      string
	TotalUsers int64
	Result     aggregate.Result
	Ranked     []aggregate.Ranked
	Report     audit.Report
	// AuditErr is set when the audit log could not be persisted. The
	// aggregation is still valid.
	AuditErr   error
	FinishedAt time.Time
	Duration   time.Duration
}

// Pipeline wires the collaborators of a pass. A nil store disables audit
// persistence; identifiers are still classified.
type Pipeline struct {
	catalog CatalogSource
	feed    feed.Fetcher
	store   audit.Store
	events  *audit.Events
	opts    Options
	tracer  trace.Tracer
}

// New constructs a Pipeline.
func New(cat CatalogSource, f feed.Fetcher, store audit.Store, opts Options) *Pipeline {
	if opts.Mode == "" {
		opts.Mode = aggregate.ModeCommPriority
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Backend == "" {
		opts.Backend = string(audit.BackendFile)
	}
	return &Pipeline{
		catalog: cat,
		feed:    f,
		store:   store,
		events:  audit.NewEvents(),
		opts:    opts,
		tracer:  telemetry.Tracer("playercount/reconcile"),
	}
}

// AuditEnabled reports whether passes persist unmatched identifiers.
func (p *Pipeline) AuditEnabled() bool { return p.store != nil }

// AuditLog reads the persisted audit log.
func (p *Pipeline) AuditLog(ctx context.Context) (*audit.Log, error) {
	if p.store == nil {
		return audit.NewLog(), nil
	}
	return p.store.Load(ctx)
}

// Run executes one pass. Catalog and feed errors are terminal and returned
// unchanged so callers can match them with errors.Is. Audit persistence
// failures are reported in Outcome.AuditErr.
func (p *Pipeline) Run(ctx context.Context) (*Outcome, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = xglog.ContextWithRunID(ctx, runID)
	ctx, span := p.tracer.Start(ctx, "reconcile.run",
		trace.WithAttributes(telemetry.RunAttributes(runID, string(p.opts.Mode))...))
	defer span.End()
	logger := xglog.WithComponentFromContext(ctx, "reconcile")

	cat, err := p.catalog.Current()
	if err != nil {
		metrics.RecordRun(metrics.OutcomeCatalogError)
		failSpan(span, err, "catalog")
		logger.Error().Err(err).Str(xglog.FieldEvent, "catalog.unavailable").Msg("no catalog snapshot")
		return nil, err
	}

	snap, err := p.fetch(ctx)
	if err != nil {
		metrics.RecordRun(metrics.OutcomeFeedError)
		failSpan(span, err, feed.Kind(err))
		logger.Error().Err(err).Str(xglog.FieldEvent, "feed.fetch_failed").Msg("feed fetch failed")
		return nil, err
	}
	span.SetAttributes(telemetry.FeedAttributes(snap.TotalUsers, len(snap.TicketGames), len(snap.PSNGames))...)

	result := aggregate.AggregateWith(cat, snap, p.opts.Mode)
	ranked := aggregate.Rank(result)

	out := &Outcome{
		RunID:      runID,
		TotalUsers: snap.TotalUsers,
		Result:     result,
		Ranked:     ranked,
	}
	out.Report, out.AuditErr = p.audit(ctx, cat, snap, runID)
	span.SetAttributes(telemetry.AuditAttributes(p.backend(), out.Report.UnmatchedTotal(), len(out.Report.Appended))...)

	for _, family := range audit.Families {
		metrics.SetFeedIDs(string(family), len(out.Report.Matched[family]), len(out.Report.Unmatched[family]))
	}
	metrics.SetFeedTotalUsers(snap.TotalUsers)
	metrics.SetTitlesLive(len(ranked))
	metrics.RecordRun(metrics.OutcomeSuccess)

	out.FinishedAt = p.opts.Clock()
	out.Duration = time.Since(start)
	logger.Info().
		Str(xglog.FieldEvent, "reconcile.completed").
		Int64(xglog.FieldTotalUsers, out.TotalUsers).
		Int("titles", len(result)).
		Int("ranked", len(ranked)).
		Int("unmatched", out.Report.UnmatchedTotal()).
		Bool("audit_failed", out.AuditErr != nil).
		Dur("duration", out.Duration).
		Msg("reconcile pass completed")
	return out, nil
}

func (p *Pipeline) fetch(ctx context.Context) (*feed.Snapshot, error) {
	start := time.Now()
	snap, err := p.feed.Fetch(ctx)
	if err != nil {
		metrics.ObserveFeedFetch(time.Since(start), feed.Kind(err))
		return nil, err
	}
	metrics.ObserveFeedFetch(time.Since(start), "")
	return snap, nil
}

func (p *Pipeline) audit(ctx context.Context, cat catalog.Catalog, snap *feed.Snapshot, runID string) (audit.Report, error) {
	if p.store == nil {
		return audit.Report{Classification: audit.Classify(cat, snap)}, nil
	}

	var now time.Time
	if p.opts.Timestamps {
		now = p.opts.Clock().UTC().Truncate(time.Second)
	}

	var report audit.Report
	err := p.store.Update(ctx, func(l *audit.Log) error {
		_, report = audit.Audit(cat, snap, l, now)
		return nil
	})
	if err != nil {
		if !errors.Is(err, audit.ErrLogWrite) {
			err = fmt.Errorf("%w: %w", audit.ErrLogWrite, err)
		}
		metrics.IncAuditWriteFailure(p.backend())
		p.events.WriteFailed(ctx, p.backend(), runID, err)
		// Classification does not depend on persistence.
		return audit.Report{Classification: audit.Classify(cat, snap)}, err
	}

	metrics.AddAuditAppended(len(report.Appended))
	p.events.Recorded(ctx, p.backend(), runID, report)
	return report, nil
}

func (p *Pipeline) backend() string {
	if p.store == nil {
		return ""
	}
	return p.opts.Backend
}

func failSpan(span trace.Span, err error, kind string) {
	span.RecordError(err)
	span.SetAttributes(telemetry.ErrorAttributes(err, kind)...)
	span.SetStatus(codes.Error, err.Error())
}
