// Package server wires the router, middleware chain, and HTTP server.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/IoFMT/Inception/internal/auth"
	"github.com/IoFMT/Inception/internal/config"
	"github.com/IoFMT/Inception/internal/handler"
	"github.com/IoFMT/Inception/internal/health"
	"github.com/IoFMT/Inception/internal/metrics"
	"github.com/IoFMT/Inception/internal/middleware"
)

// Server is the facade's HTTP server.
type Server struct {
	router      *mux.Router
	httpServer  *http.Server
	handlers    *handler.Handlers
	healthCheck *health.HealthCheck
	resolver    *auth.Resolver
	metrics     *metrics.Metrics
	logger      *zap.Logger
	cfg         *config.Config
}

// NewServer creates the HTTP server.
func NewServer(
	cfg *config.Config,
	handlers *handler.Handlers,
	healthCheck *health.HealthCheck,
	resolver *auth.Resolver,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Server {
	router := mux.NewRouter()
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		router:      router,
		httpServer:  httpServer,
		handlers:    handlers,
		healthCheck: healthCheck,
		resolver:    resolver,
		metrics:     m,
		logger:      logger,
		cfg:         cfg,
	}
}

// SetupRoutes configures the middleware chain and route table.
func (s *Server) SetupRoutes() {
	middlewareChain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger, s.metrics),
		middleware.CORS([]string{"*"}),
	}
	if s.cfg.RateLimiter.Enabled {
		rateLimiter := middleware.NewRateLimiter(
			s.cfg.RateLimiter.RequestsPerSecond,
			s.cfg.RateLimiter.BurstSize,
			s.logger,
		)
		middlewareChain = append(middlewareChain, rateLimiter.Limit)
	}
	chain := middleware.Chain(middlewareChain...)
	s.router.Use(func(next http.Handler) http.Handler {
		return chain(next)
	})

	// Unauthenticated endpoints.
	s.router.HandleFunc("/", s.handlers.Status).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.healthCheck.LivenessHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.healthCheck.ReadinessHandler).Methods(http.MethodGet)
	if s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
	}

	// Everything else requires a resolvable API key.
	authed := s.router.NewRoute().Subrouter()
	authed.Use(middleware.APIKey(s.resolver, s.metrics, s.logger))

	authed.HandleFunc("/schedules", s.handlers.FetchSchedules).Methods(http.MethodPost)
	authed.HandleFunc("/shared-links", s.handlers.SyncShareLinks).Methods(http.MethodPost)

	authed.HandleFunc("/cache", s.handlers.QueryCache).Methods(http.MethodPost)
	authed.HandleFunc("/cache", s.handlers.ClearCache).Methods(http.MethodDelete)

	authed.HandleFunc("/config/add", s.handlers.AddTenant).Methods(http.MethodPost)
	authed.HandleFunc("/config/delete/{id}", s.handlers.DeleteTenant).Methods(http.MethodDelete)
	authed.HandleFunc("/config/get/{id}", s.handlers.GetTenants).Methods(http.MethodGet)
	authed.HandleFunc("/config/token", s.handlers.GetAccessToken).Methods(http.MethodGet)

	authed.HandleFunc("/config/shared_links", s.handlers.ListLinks).Methods(http.MethodGet)
	authed.HandleFunc("/config/shared_links", s.handlers.SaveLink).Methods(http.MethodPost)
	authed.HandleFunc("/config/shared_links/{id}", s.handlers.DeleteLink).Methods(http.MethodDelete)
}

// Start begins serving. Blocks until the listener fails or is closed.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
