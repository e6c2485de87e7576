// Package httpapi wires the HTTP surface of the ledger service.
// It keeps handlers thin, delegating the accounting rules to the service layer.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/bankbook/internal/service/bank"
)

// ReadyChecker is optionally implemented by stores that can probe their
// backend (the SQL stores ping their pools; the memory store is always ready).
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// Server wires handlers and middleware using Chi.
type Server struct {
	svc   bank.Service
	store bank.Store
	log   *slog.Logger
	rt    *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
// The logger is used by basic request/response logging and panic recovery.
func New(store bank.Store, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{svc: bank.New(store), store: store, log: logger, rt: r}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	s.rt.With(s.validateOperation()).Post("/api/deposit", s.postDeposit)
	s.rt.With(s.validateOperation()).Post("/api/withdraw", s.postWithdraw)
	s.rt.Get("/api/balance/{uuid}", s.getBalance)
	s.rt.Get("/api/history/{uuid}", s.getHistory)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}
