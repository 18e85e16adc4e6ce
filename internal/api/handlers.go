// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"time"

	"github.com/ManuGH/playercount/internal/aggregate"
	"github.com/ManuGH/playercount/internal/log"
)

// PlayersResponse is the JSON view of one pass.
type PlayersResponse struct {
	TotalUsers int64              `json:"total_users"`
	Games      []aggregate.Ranked `json:"games"`
}

// AuditEntry is the JSON view of one audit log entry.
type AuditEntry struct {
	RawID    string     `json:"raw_id"`
	Count    int        `json:"count"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// AuditResponse is the JSON view of the audit log.
type AuditResponse struct {
	Enabled bool         `json:"enabled"`
	Backend string       `json:"backend,omitempty"`
	Total   int          `json:"total"`
	Entries []AuditEntry `json:"entries"`
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	out, err := s.runner.Run(r.Context())
	if err != nil {
		status, detail := statusFor(err)
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().Err(err).Int("status", status).Str(log.FieldEvent, "players.failed").Msg("reconcile pass failed")
		writeProblem(w, r, status, detail)
		return
	}

	games := out.Ranked
	if games == nil {
		games = []aggregate.Ranked{}
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, PlayersResponse{TotalUsers: out.TotalUsers, Games: games})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	resp := AuditResponse{Enabled: s.cfg.AuditEnabled, Entries: []AuditEntry{}}
	if !s.cfg.AuditEnabled {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.Backend = s.cfg.AuditBackend

	l, err := s.runner.AuditLog(r.Context())
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldBackend, s.cfg.AuditBackend).Msg("read audit log")
		writeProblem(w, r, http.StatusServiceUnavailable, "audit log is temporarily unavailable")
		return
	}

	for _, e := range l.Entries() {
		entry := AuditEntry{RawID: e.RawID, Count: e.Count}
		if !e.LastSeen.IsZero() {
			ts := e.LastSeen.UTC()
			entry.LastSeen = &ts
		}
		resp.Entries = append(resp.Entries, entry)
	}
	resp.Total = len(resp.Entries)
	writeJSON(w, http.StatusOK, resp)
}
