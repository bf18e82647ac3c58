// Package server provides the HTTP API for inquirit.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/poiesic/inquirit/config"
	"github.com/poiesic/inquirit/core"
	"github.com/poiesic/inquirit/metrics"
	"github.com/poiesic/inquirit/search"
	"github.com/poiesic/inquirit/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ErrAnswererRequired is returned by NewServer when no Answerer is supplied.
var ErrAnswererRequired = errors.New("answerer is required")

// Answerer is the part of inquirit.Assistant the server needs.
type Answerer interface {
	Ask(ctx context.Context, conversation, query string) (*search.Answer, error)
	AnswerWithHistory(ctx context.Context, query string, history []core.Turn) (*search.Answer, error)
}

// Server is the HTTP server for the inquirit API.
type Server struct {
	answerer Answerer
	history  storage.ConversationRepository
	config   config.ServerConfig
	logger   *slog.Logger
	server   *http.Server
}

// Option configures a Server.
type Option func(*Server) error

// WithHistory exposes the conversation store under /api/v1/conversations.
func WithHistory(repo storage.ConversationRepository) Option {
	return func(s *Server) error {
		s.history = repo
		return nil
	}
}

// WithLogger sets a custom logger. Nil falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "server")
		return nil
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(answerer Answerer, cfg config.ServerConfig, opts ...Option) (*Server, error) {
	if answerer == nil {
		return nil, ErrAnswererRequired
	}
	s := &Server{
		answerer: answerer,
		config:   cfg,
		logger:   slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	metrics.Register(nil)
	return s, nil
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.config.RequestTimeout))
		}
		r.Post("/search", s.handleSearch)
		r.Get("/conversations", s.handleListConversations)
		r.Get("/conversations/{id}", s.handleGetConversation)
		r.Delete("/conversations/{id}", s.handleDeleteConversation)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
// A graceful Stop makes Start return nil.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", "addr", addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
