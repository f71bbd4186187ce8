// Package server exposes a Pipeline over HTTP.
//
//	POST /v1/process              {"content": "..."}
//	POST /v1/process/batch        {"inputs": ["...", "..."]}
//	GET  /v1/graph                topology as JSON, or ?format=mermaid
//	POST /v1/runs/{runID}/resume  continue a checkpointed run
//	GET  /healthz
//	GET  /metrics                 when metrics are enabled
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tailored-agentic-units/flowgraph/pipeline"
)

// Server serves a Pipeline.
type Server struct {
	pipeline *pipeline.Pipeline
	cfg      pipeline.ServerConfig
	logger   *slog.Logger
	router   chi.Router
}

// New creates a Server. A nil logger uses slog.Default.
func New(p *pipeline.Pipeline, cfg pipeline.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		pipeline: p,
		cfg:      cfg,
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.telemetry)

	r.Get("/healthz", s.handleHealth)
	if metrics := s.pipeline.MetricsHandler(); metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/process", s.handleProcess)
		r.Post("/process/batch", s.handleBatch)
		r.Get("/graph", s.handleGraph)
		r.Post("/runs/{runID}/resume", s.handleResume)
	})

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on the configured address until ctx is done, then
// shuts down gracefully within the configured timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
