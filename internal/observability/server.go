package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rafaeljc/heimdall-sdk/internal/config"
)

// Server exposes liveness, readiness and Prometheus metrics on a port of its
// own, away from relay traffic.
type Server struct {
	logger   *slog.Logger
	cfg      *config.ObservabilityConfig
	router   *chi.Mux
	checkers []Checker

	server   *http.Server
	listener net.Listener
}

// NewServer builds the admin router. Readiness requires every checker to pass.
func NewServer(logger *slog.Logger, cfg *config.ObservabilityConfig, checkers ...Checker) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		panic("observability: config cannot be nil")
	}

	s := &Server{logger: logger, cfg: cfg, checkers: checkers}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer, middleware.NoCache)

	r.Get(s.cfg.LivenessPath, s.liveness)
	r.Get(s.cfg.ReadinessPath, s.readiness)
	r.Method(http.MethodGet, s.cfg.MetricsPath, promhttp.Handler())
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the port and serves in the background. Binding happens before it
// returns, so a port clash is reported to the caller instead of a log line.
// Port "0" picks a free port; see Addr.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to bind observability port: %w", err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.Timeout,
		WriteTimeout: s.cfg.Timeout,
		IdleTimeout:  3 * s.cfg.Timeout,
	}

	s.logger.Info("observability server listening",
		slog.String("addr", ln.Addr().String()),
		slog.String("liveness_path", s.cfg.LivenessPath),
		slog.String("readiness_path", s.cfg.ReadinessPath),
		slog.String("metrics_path", s.cfg.MetricsPath),
		slog.Int("checkers", len(s.checkers)),
	)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("observability server failed", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown drains in-flight probes. It is a no-op if Start never ran.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("stopping observability server")
	return s.server.Shutdown(ctx)
}
