// Package server provides the HTTP API for teaching and running the classifier.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/teachable/internal/config"
	"github.com/hyperjump/teachable/internal/engine"
)

// Server is the HTTP server for the classifier API.
type Server struct {
	engine   *engine.Engine
	config   *config.ServerConfig
	logger   *zap.Logger
	limiter  *rate.Limiter
	dbPath   string
	headsDir string
	server   *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithDiskUsage reports the footprint of the sample database and head
// directory in the status response.
func WithDiskUsage(dbPath, headsDir string) ServerOption {
	return func(s *Server) {
		s.dbPath = dbPath
		s.headsDir = headsDir
	}
}

// NewServer creates a server. A positive MaxTicksPerSecond limits the tick
// endpoint.
func NewServer(eng *engine.Engine, cfg *config.ServerConfig, logger *zap.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine: eng,
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg != nil && cfg.MaxTicksPerSecond > 0 {
		burst := int(cfg.MaxTicksPerSecond)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.MaxTicksPerSecond), burst)
	}
	return s
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/classes", s.handleListClasses)
		r.Post("/classes", s.handleAddClass)
		r.Post("/samples", s.handleAddSample)
		r.Post("/head/finalize", s.handleFinalize)
		r.Get("/head", s.handleGetHead)
		r.Put("/head", s.handlePutHead)
		r.Get("/heads", s.handleListHeads)
		r.Post("/heads/{name}/install", s.handleInstallNamed)
		r.Post("/inference/start", s.handleStart)
		r.Post("/inference/pause", s.handlePause)
		r.Post("/inference/tick", s.handleTick)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
