package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/driverd/internal/logfields"
	"git.home.luguber.info/inful/driverd/internal/metrics"
)

// HTTPServer serves the daemon's health and metrics endpoints.
type HTTPServer struct {
	addr   string
	daemon *Daemon
	reg    *prom.Registry

	mu     sync.Mutex
	server *http.Server
	ln     net.Listener
}

// NewHTTPServer creates a server for addr. It does not bind until Start.
func NewHTTPServer(addr string, daemon *Daemon, reg *prom.Registry) *HTTPServer {
	return &HTTPServer{addr: addr, daemon: daemon, reg: reg}
}

// Handler returns the endpoint mux.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.daemon.HealthHandler)
	mux.Handle("/metrics", metrics.HTTPHandler(s.reg))
	return mux
}

// Start binds the listener synchronously so bind errors surface here, then
// serves in the background.
func (s *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.ln = ln
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.daemon.logger.ErrorContext(ctx, "HTTP server failed", logfields.Error(err))
		}
	}()

	s.daemon.logger.InfoContext(ctx, "HTTP server started", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop shuts the server down gracefully.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
