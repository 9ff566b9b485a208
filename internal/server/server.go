// Package server provides the HTTP API over the document repository,
// similarity results, and keyword search.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/labdriver/specsim/internal/config"
	"github.com/labdriver/specsim/internal/keyword"
	"github.com/labdriver/specsim/internal/message"
	"github.com/labdriver/specsim/internal/processor"
	"github.com/labdriver/specsim/internal/storage"
)

// Server is the HTTP server for the specsim API.
type Server struct {
	repo     storage.Repository
	index    keyword.Index
	proc     *processor.Processor
	messages *message.Service
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. index may be nil,
// in which case search endpoints report unavailable.
func NewServer(
	repo storage.Repository,
	index keyword.Index,
	proc *processor.Processor,
	messages *message.Service,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		repo:     repo,
		index:    index,
		proc:     proc,
		messages: messages,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/process", s.handleProcess)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Get("/api/v1/documents/recent", s.handleRecentDocuments)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Get("/api/v1/documents/{id}/sections", s.handleGetSections)
	r.Get("/api/v1/documents/{id}/similar", s.handleGetSimilar)
	r.Get("/api/v1/documents/{id}/messages", s.handleGetMessages)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
