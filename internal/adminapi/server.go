// Package adminapi provides a small REST surface for observing a running
// quoteserver: liveness and dispatcher/host statistics. It carries no
// control endpoints — read-only by design, since the dispatcher directory
// must never be mutated from outside the dispatcher's own goroutine.
package adminapi

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mstreamio/quotestream/internal/adminapi/handlers"
	"github.com/mstreamio/quotestream/internal/adminapi/middleware"
	"github.com/mstreamio/quotestream/internal/dispatcher"
	"github.com/mstreamio/quotestream/internal/errs"
)

// Server is the admin HTTP server.
type Server struct {
	logger     *slog.Logger
	engine     *gin.Engine
	httpServer *http.Server
	ln         net.Listener
}

// New binds addr and builds an admin server reading counters from stats.
// Binding eagerly lets callers observe the actual listen address (useful
// when addr's port is 0) before ListenAndServe is called.
func New(addr string, stats *dispatcher.Stats, logger *slog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: binding admin API: %v", errs.ErrNetwork, err)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.SlogRequestLogger(logger))

	h := handlers.New(stats, logger)
	engine.GET("/healthz", h.Health)
	engine.GET("/stats", h.Stats)

	httpServer := &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{logger: logger, engine: engine, httpServer: httpServer, ln: ln}, nil
}

// Addr reports the server's bound listen address.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// ListenAndServe blocks until Shutdown is called or the listener fails.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.Serve(s.ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server, waiting for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
