// Package api serves the journal and its analytics over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/newthinker/tradelog/internal/analytics"
	handler "github.com/newthinker/tradelog/internal/api/handler/api"
	"github.com/newthinker/tradelog/internal/api/job"
	"github.com/newthinker/tradelog/internal/api/middleware"
	"github.com/newthinker/tradelog/internal/journal"
	"github.com/newthinker/tradelog/internal/metrics"
	"github.com/newthinker/tradelog/internal/notifier"
	"github.com/newthinker/tradelog/internal/storage/archive"
	"github.com/newthinker/tradelog/internal/storage/trade"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for tradelog
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	router     chi.Router
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MaxJobs     int
	JobTTL      time.Duration
	RateRPS     float64
	RateBurst   int
	MetricsPath string
}

// Dependencies are the collaborators the handlers need. Archiver,
// Metrics and Notifier are optional.
type Dependencies struct {
	Store    trade.Store
	Engine   *analytics.Engine
	Archiver *archive.Archiver
	Metrics  *metrics.Registry
	Notifier *notifier.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Store == nil || deps.Engine == nil {
		return nil, fmt.Errorf("store and engine are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RateRPS <= 0 {
		cfg.RateRPS = 1
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 5
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	router := chi.NewRouter()
	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		router: router,
	}

	s.setupRoutes(cfg, deps)
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	r := s.router
	r.Use(chimw.RequestID)
	r.Use(metrics.LoggingMiddleware(s.logger.Named("http")))
	r.Use(chimw.Recoverer)
	if deps.Metrics != nil {
		r.Use(metrics.HTTPMiddleware(deps.Metrics))
		r.Handle(cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Get("/api/health", s.handleHealth)

	validator := journal.NewValidator()
	jobs := job.NewStore(cfg.MaxJobs, cfg.JobTTL)
	limiter := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, s.logger.Named("ratelimit"))

	trades := handler.NewTradeHandler(deps.Store, deps.Engine, validator, deps.Metrics, s.logger.Named("trades"))
	stats := handler.NewAnalyticsHandler(deps.Store, deps.Engine, deps.Metrics)
	sims := handler.NewMonteCarloHandler(jobs, deps.Store, deps.Engine, validator, deps.Metrics, deps.Notifier, s.logger.Named("montecarlo"))
	reports := handler.NewReportHandler(deps.Store, deps.Engine, deps.Archiver, validator, deps.Metrics, deps.Notifier, s.logger.Named("reports"))

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKey))

		r.Get("/api/trades", trades.List)
		r.Post("/api/trades", trades.Create)
		r.Get("/api/trades/{id}", trades.Get)
		r.Put("/api/trades/{id}", trades.Update)
		r.Delete("/api/trades/{id}", trades.Delete)
		r.Get("/api/trades/{id}/pnl", trades.PnL)

		r.Get("/api/analytics/summary", stats.Summary)
		r.Get("/api/analytics/equity", stats.Equity)
		r.Get("/api/analytics/drawdown", stats.Drawdown)
		r.Get("/api/analytics/heatmap", stats.Heatmap)
		r.Get("/api/analytics/hourly", stats.Hourly)
		r.Get("/api/analytics/daily", stats.Daily)
		r.Get("/api/analytics/strategies", stats.Strategies)
		r.Get("/api/analytics/streaks", stats.Streaks)
		r.With(limiter.Handler).Post("/api/analytics/montecarlo", sims.Create)
		r.Get("/api/jobs/{id}", sims.GetStatus)

		r.Get("/api/reports/export.xlsx", reports.Export)
		r.Post("/api/reports/snapshots", reports.Snapshot)
		r.Get("/api/reports/snapshots/latest", reports.Latest)
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
