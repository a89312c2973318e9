// Package server provides the HTTP API for Soyamu.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/soyamu/soyamu/internal/config"
	"github.com/soyamu/soyamu/internal/engine"
	"github.com/soyamu/soyamu/internal/relations"
	"github.com/soyamu/soyamu/internal/rl"
)

// Server is the HTTP server for the Soyamu API.
type Server struct {
	engine    *engine.Engine
	relations *relations.Graph
	tuner     *rl.Agent
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. relations and
// tuner may be nil; their endpoints degrade gracefully.
func NewServer(
	eng *engine.Engine,
	graph *relations.Graph,
	tuner *rl.Agent,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:    eng,
		relations: graph,
		tuner:     tuner,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/items", s.handleAddItem)
	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/fraud-check", s.handleFraudCheck)
	r.Post("/api/v1/feedback", s.handleFeedback)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
