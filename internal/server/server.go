package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"src2purl/internal/config"
	"src2purl/internal/logging"
	"src2purl/internal/metrics"
	"src2purl/internal/provider"
)

const (
	maxRequestBytes = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Server serves identification requests.
type Server struct {
	cfg      *config.Config
	registry *provider.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
	router   chi.Router
}

// New wires the routes. registry is shared by every request and stays owned
// by the caller; m may be nil.
func New(cfg *config.Config, registry *provider.Registry, m *metrics.Metrics, logger *slog.Logger) *Server {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	s := &Server{
		cfg:      cfg,
		registry: registry,
		metrics:  m,
		logger:   logging.NewComponentLogger(logger, "server"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware())
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Use(requireToken(cfg.Server.Token))
		r.Post("/identify", s.handleIdentify)
	})
	s.router = r
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on cfg.Server.Bind until ctx is done, then shuts
// down gracefully. ready, when non-nil, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, ready func(addr string)) error {
	listener, err := net.Listen("tcp", s.cfg.Server.Bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	addr := listener.Addr().String()
	s.logger.Info("api server listening", logging.String("address", addr))
	if ready != nil {
		ready(addr)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("api shutdown: %w", err)
	}
	s.logger.Info("api server stopped")
	return nil
}
