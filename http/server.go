// Package http serves the risk calculator pages, the JSON API and the
// monitoring feed.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Server struct {
	server *http.Server
	config ServerConfig
	log    *zap.Logger
}

type ServerConfig struct {
	Port         int
	Timeout      time.Duration
	MaxBodyBytes int64
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:         8080,
		Timeout:      30 * time.Second,
		MaxBodyBytes: 64 << 10,
	}
}

// NewHandler wraps the routes of h in the standard middleware chain.
func NewHandler(config ServerConfig, h *Handlers, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)

	chain := Chain(
		RecoveryMiddleware(log), // outermost, so it also catches logger panics
		LoggerMiddleware(log),
		SecurityHeadersMiddleware,
		TimeoutMiddleware(config.Timeout),
		RequestSizeMiddleware(config.MaxBodyBytes),
	)
	return chain(mux)
}

func NewServer(config ServerConfig, h *Handlers, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.Port),
			Handler:           NewHandler(config, h, log),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       config.Timeout,
			WriteTimeout:      config.Timeout,
			IdleTimeout:       120 * time.Second,
		},
		config: config,
		log:    log,
	}
}

// Start blocks serving until Stop is called.
func (s *Server) Start() error {
	s.log.Info("starting http server",
		zap.String("addr", s.server.Addr),
		zap.String("monitor", fmt.Sprintf("ws://localhost%s/api/ws/monitor", s.server.Addr)),
	)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("shutting down http server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (s *Server) Addr() string {
	return s.server.Addr
}
