// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Span attribute keys.
const (
	RunIDKey = "reconcile.run_id"
	ModeKey  = "reconcile.mode"

	CatalogTitlesKey = "catalog.titles"

	FeedTotalUsersKey  = "feed.total_users"
	FeedTicketGamesKey = "feed.ticket_games"
	FeedPSNGamesKey    = "feed.psn_games"

	RankedTitlesKey = "result.ranked_titles"

	AuditBackendKey   = "audit.backend"
	AuditUnmatchedKey = "audit.unmatched"
	AuditAppendedKey  = "audit.appended"

	HTTPMethodKey     = "http.method"
	HTTPRouteKey      = "http.route"
	HTTPStatusCodeKey = "http.status_code"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// RunAttributes describes a reconcile pass.
func RunAttributes(runID, mode string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(RunIDKey, runID),
		attribute.String(ModeKey, mode),
	}
}

// FeedAttributes describes a fetched feed snapshot.
func FeedAttributes(totalUsers int64, ticketGames, psnGames int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(FeedTotalUsersKey, totalUsers),
		attribute.Int(FeedTicketGamesKey, ticketGames),
		attribute.Int(FeedPSNGamesKey, psnGames),
	}
}

// AuditAttributes describes an audit pass. Empty backend is omitted.
func AuditAttributes(backend string, unmatched, appended int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if backend != "" {
		attrs = append(attrs, attribute.String(AuditBackendKey, backend))
	}
	return append(attrs,
		attribute.Int(AuditUnmatchedKey, unmatched),
		attribute.Int(AuditAppendedKey, appended),
	)
}

// HTTPAttributes describes a served request. A zero status is omitted.
func HTTPAttributes(method, route string, status int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
	}
	if status != 0 {
		attrs = append(attrs, attribute.Int(HTTPStatusCodeKey, status))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
