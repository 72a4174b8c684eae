package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/covid-tracker-service/internal/domain"
)

const requestTimeout = 15 * time.Second

// Tracker is the dashboard state the API reads and drives.
type Tracker interface {
	Snapshot() domain.Dashboard
	SelectCountry(ctx context.Context, code string) error
	SelectMetric(ctx context.Context, metric domain.MetricType) error
	ToggleDarkMode(ctx context.Context) error
}

// Server exposes the dashboard API plus health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	tracker    Tracker
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer creates an HTTP server. rateLimit caps selection requests per
// client IP per minute; zero disables the limit.
func NewServer(addr string, tracker Tracker, ready sharedobs.ReadinessChecker, rateLimit int, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 20 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		tracker:  tracker,
		validate: validator.New(),
		logger:   logger,
	}

	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(requestTimeout))
		s.mountRoutes(api, rateLimit)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
