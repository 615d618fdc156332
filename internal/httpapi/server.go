// Package httpapi exposes the interview orchestration core over HTTP.
//
// All interview routes live under /api behind bearer-token authentication;
// /healthz, /readyz, and /metrics stay open for the platform. Handlers stay
// thin: parse, call the service, map the domain error onto the status code.
// State checks belong to the service so the API cannot drift from the
// lifecycle rules.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxhire/voxhire/internal/health"
	"github.com/voxhire/voxhire/internal/interview"
	"github.com/voxhire/voxhire/internal/notify"
	"github.com/voxhire/voxhire/internal/observe"
)

// Config tunes the HTTP server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// JWTSecret verifies bearer tokens. Required.
	JWTSecret []byte

	// SSEIdleTimeout ends a progress stream that has not delivered an event
	// for this long. Default: 10m.
	SSEIdleTimeout time.Duration

	// MetricsEnabled mounts the Prometheus scrape endpoint at /metrics.
	MetricsEnabled bool
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.SSEIdleTimeout <= 0 {
		c.SSEIdleTimeout = 10 * time.Minute
	}
	return c
}

// Server wires the interview service and progress hub into an HTTP surface.
type Server struct {
	cfg Config
	log *slog.Logger

	svc    *interview.Service
	hub    *notify.Hub
	health *health.Handler

	metrics *observe.Metrics

	httpSrv *http.Server

	// closing tells open progress streams to end. http.Server.Shutdown
	// drains but never cancels in-flight requests, so without this a
	// single connected stream would hold shutdown for the whole grace
	// period.
	closing   chan struct{}
	closeOnce sync.Once
}

// Option is a functional option for configuring the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithMetrics attaches the HTTP middleware instruments and the progress
// subscriber gauge.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New constructs the Server. checker supplies /healthz and /readyz; pass
// health.New() when there is nothing to probe.
func New(svc *interview.Service, hub *notify.Hub, checker *health.Handler, cfg Config, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg.withDefaults(),
		log:     slog.Default().With("component", "httpapi"),
		svc:     svc,
		hub:     hub,
		health:  checker,
		closing: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}

	// WriteTimeout stays zero: the progress stream holds its response open
	// for up to SSEIdleTimeout.
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes assembles the router. Exposed so tests can serve it directly.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	if s.metrics != nil {
		r.Use(observe.Middleware(s.metrics))
	}

	s.health.Register(r)
	if s.cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(s.bearerAuth)

		api.Post("/interviews/start", s.handleStart)
		api.Get("/interviews/history", s.handleHistory)
		api.Get("/interviews/{id}", s.handleGet)
		api.Post("/interviews/{id}/upload-url", s.handleUploadURL)
		api.Post("/interviews/{id}/confirm-upload", s.handleConfirmUpload)
		api.Post("/interviews/{id}/response", s.handleSubmitResponse)
		api.Post("/interviews/{id}/complete", s.handleComplete)
		api.Get("/interviews/{id}/feedback", s.handleFeedback)
		api.Get("/interviews/{id}/events", s.handleEvents)
	})

	return r
}

// Start serves until the listener fails or Shutdown runs. A clean shutdown
// returns nil.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.cfg.Addr)
	if err := s.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown ends open progress streams, stops accepting connections, and
// drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })
	return s.httpSrv.Shutdown(ctx)
}
