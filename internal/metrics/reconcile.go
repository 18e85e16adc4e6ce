// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus metrics for reconcile passes, the feed
// and the audit log.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed
	feedFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "playercount_feed_fetch_duration_seconds",
		Help:    "Duration of stats feed fetches",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"outcome"}) // outcome=success|failure

	feedFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playercount_feed_fetch_errors_total",
		Help: "Total number of feed fetch failures by kind",
	}, []string{"kind"}) // kind=unreachable|malformed|unknown

	feedTotalUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playercount_feed_total_users",
		Help: "Total users reported by the feed (last pass)",
	})

	feedIDs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "playercount_feed_ids",
		Help: "Raw feed identifiers by family and match outcome (last pass)",
	}, []string{"family", "outcome"}) // outcome=matched|unmatched

	// Catalog
	catalogTitles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playercount_catalog_titles",
		Help: "Number of titles in the loaded catalog",
	})

	catalogReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playercount_catalog_reloads_total",
		Help: "Catalog reload attempts by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	// Results
	titlesLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playercount_titles_live",
		Help: "Titles with a positive player count (last pass)",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playercount_reconcile_runs_total",
		Help: "Reconcile passes by outcome",
	}, []string{"outcome"}) // outcome=success|catalog_error|feed_error

	lastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playercount_last_success_timestamp_seconds",
		Help: "Unix time of the last successful reconcile pass",
	})

	// Audit
	auditAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playercount_audit_appended_total",
		Help: "Unmatched identifiers newly added to the audit log",
	})

	auditWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playercount_audit_write_failures_total",
		Help: "Audit log persistence failures by backend",
	}, []string{"backend"})
)

// Run outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeCatalogError = "catalog_error"
	OutcomeFeedError    = "feed_error"
)

// ObserveFeedFetch records one feed fetch. An empty kind means success.
func ObserveFeedFetch(d time.Duration, kind string) {
	outcome := "success"
	if kind != "" {
		outcome = "failure"
		feedFetchErrors.WithLabelValues(kind).Inc()
	}
	feedFetchDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// SetFeedTotalUsers records the feed's num_users passthrough.
func SetFeedTotalUsers(n int64) {
	feedTotalUsers.Set(float64(n))
}

// SetFeedIDs records matched/unmatched raw identifier counts for a family.
func SetFeedIDs(family string, matched, unmatched int) {
	feedIDs.WithLabelValues(family, "matched").Set(float64(matched))
	feedIDs.WithLabelValues(family, "unmatched").Set(float64(unmatched))
}

// SetCatalogTitles records the catalog size.
func SetCatalogTitles(n int) {
	catalogTitles.Set(float64(n))
}

// RecordCatalogReload counts a reload attempt.
func RecordCatalogReload(ok bool) {
	if ok {
		catalogReloads.WithLabelValues("success").Inc()
		return
	}
	catalogReloads.WithLabelValues("failure").Inc()
}

// SetTitlesLive records how many titles made it into the ranked output.
func SetTitlesLive(n int) {
	titlesLive.Set(float64(n))
}

// RecordRun counts a reconcile pass. Successful passes also refresh the
// last-success timestamp.
func RecordRun(outcome string) {
	runsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		lastSuccess.SetToCurrentTime()
	}
}

// AddAuditAppended counts identifiers newly added to the audit log.
func AddAuditAppended(n int) {
	if n > 0 {
		auditAppended.Add(float64(n))
	}
}

// IncAuditWriteFailure counts a failed audit persistence attempt.
func IncAuditWriteFailure(backend string) {
	auditWriteFailures.WithLabelValues(backend).Inc()
}
