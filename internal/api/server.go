// Package api provides the HTTP API server for the mission console.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/narvanalabs/mission-console/internal/api/handlers"
	"github.com/narvanalabs/mission-console/internal/api/health"
	"github.com/narvanalabs/mission-console/internal/api/middleware"
	"github.com/narvanalabs/mission-console/pkg/config"
)

// Version is the current version of the console.
// This should be set at build time using ldflags.
var Version = "dev"

// ControlPlane is the REST client the server proxies mission reads to.
type ControlPlane interface {
	handlers.MissionReader
	health.Pinger
}

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	source        handlers.LogSource
	controlPlane  ControlPlane
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
	streams       *handlers.LogStreamHandler
}

// NewServer creates a new API server over the given log view. controlPlane
// may be nil, in which case the mission endpoints answer 503.
func NewServer(cfg *config.Config, source handlers.LogSource, controlPlane ControlPlane, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		source:       source,
		controlPlane: controlPlane,
		config:       cfg,
		logger:       logger,
	}

	var pinger health.Pinger
	if controlPlane != nil {
		pinger = controlPlane
	}
	s.healthChecker = health.NewChecker(source, pinger, Version)

	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: event streams write for as long as the client stays.
		IdleTimeout: 120 * time.Second,
	}
	// Open event streams would otherwise hold Shutdown until its deadline.
	s.httpServer.RegisterOnShutdown(s.streams.Close)
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))

	logHandler := handlers.NewLogHandler(s.source, s.logger)
	s.streams = handlers.NewLogStreamHandler(s.source, s.logger)

	var missionReader handlers.MissionReader
	if s.controlPlane != nil {
		missionReader = s.controlPlane
	}
	missionHandler := handlers.NewMissionHandler(missionReader, s.logger)

	// Event streams stay open indefinitely and skip the request timeout.
	r.Get("/v1/logs/stream", s.streams.Stream)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))

		r.Get("/health", s.healthChecker.Handler())

		r.Route("/v1", func(r chi.Router) {
			r.Route("/logs", func(r chi.Router) {
				r.Get("/", logHandler.List)
				r.Get("/status", logHandler.Status)
				r.Get("/export", logHandler.Export)
				r.Post("/clear", logHandler.Clear)
			})

			r.Route("/missions", func(r chi.Router) {
				r.Get("/", missionHandler.List)
				r.Get("/{missionID}", missionHandler.Get)
			})
		})
	})

	s.router = r
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting API server", "addr", s.httpServer.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
