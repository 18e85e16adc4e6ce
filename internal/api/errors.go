// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/playercount/internal/catalog"
	"github.com/ManuGH/playercount/internal/feed"
	"github.com/ManuGH/playercount/internal/log"
)

// Problem is an RFC 7807 error body. Details of the underlying failure are
// logged, never returned.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:      "about:blank",
		Title:     http.StatusText(status),
		Status:    status,
		Detail:    detail,
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}

// statusFor maps a terminal pass error to an HTTP status: the upstream feed
// failing is a bad gateway, a missing catalog makes the service unavailable.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, feed.ErrFeedUnreachable), errors.Is(err, feed.ErrFeedMalformed):
		return http.StatusBadGateway, "player statistics are temporarily unavailable"
	case errors.Is(err, catalog.ErrCatalogUnavailable), errors.Is(err, catalog.ErrCatalogMalformed):
		return http.StatusServiceUnavailable, "game catalog is temporarily unavailable"
	default:
		return http.StatusInternalServerError, ""
	}
}
