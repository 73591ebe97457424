// Package http serves predictions and prediction history over HTTP.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"anemiacbc/ml"
	"anemiacbc/monitoring"

	"go.uber.org/zap"
)

// Server HTTP server
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig server settings
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
	CacheSize      int
}

// DefaultServerConfig default settings
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           5000,
		Timeout:        30 * time.Second,
		MaxBodyBytes:   1 << 20,
		AllowedOrigins: []string{"*"},
		CacheSize:      1024,
	}
}

// Deps are the collaborators the handlers use. Predictor is required;
// History and Hub are optional and their routes are only registered when
// set.
type Deps struct {
	Predictor *ml.Predictor
	History   HistoryStore
	Hub       *monitoring.Hub
	Logger    *zap.Logger
}

// NewServer wires routes and middleware
func NewServer(config ServerConfig, deps Deps) (*Server, error) {
	handler, err := NewHandler(config, deps)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      handler,
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
			IdleTimeout:  120 * time.Second,
		},
		config: config,
		logger: logger,
	}, nil
}

// NewHandler builds the full handler chain without binding a listener.
func NewHandler(config ServerConfig, deps Deps) (http.Handler, error) {
	if deps.Predictor == nil {
		return nil, errors.New("predictor is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	cache, err := newPredictionCache(config.CacheSize)
	if err != nil {
		return nil, err
	}
	api := &API{
		predictor: deps.Predictor,
		cache:     cache,
		history:   deps.History,
		hub:       deps.Hub,
		logger:    deps.Logger,
	}

	mux := http.NewServeMux()
	RegisterHandlers(mux, api)

	chain := Chain(
		RecoveryMiddleware(deps.Logger),
		LoggerMiddleware(deps.Logger),
		MetricsMiddleware,
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
		RequestSizeMiddleware(config.MaxBodyBytes),
	)
	return chain(mux), nil
}

// Start blocks serving until Stop is called
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop shuts down gracefully
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}
