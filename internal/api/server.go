// SPDX-License-Identifier: MIT

// Package api serves the player-count page, its JSON views and the
// operational endpoints.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/playercount/internal/api/middleware"
	"github.com/ManuGH/playercount/internal/audit"
	"github.com/ManuGH/playercount/internal/health"
	"github.com/ManuGH/playercount/internal/reconcile"
)

// Runner executes reconcile passes and exposes the persisted audit log.
// *reconcile.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context) (*reconcile.Outcome, error)
	AuditLog(ctx context.Context) (*audit.Log, error)
}

// Config tunes the HTTP surface.
type Config struct {
	RateLimitRPM   int
	TracingService string // empty disables request tracing
	AuditBackend   string
	AuditEnabled   bool
}

// Server represents the HTTP surface of the daemon.
type Server struct {
	runner Runner
	health *health.Manager
	cfg    Config
	router chi.Router
}

// New constructs a Server and its routes.
func New(runner Runner, hm *health.Manager, cfg Config) *Server {
	s := &Server{
		runner: runner,
		health: hm,
		cfg:    cfg,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
	})

	// Probes and scrapes are not rate limited.
	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIRateLimit(s.cfg.RateLimitRPM))
		r.Get("/", s.handlePage)
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/players", s.handlePlayers)
			r.Get("/audit", s.handleAudit)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, "")
	})
	return r
}
