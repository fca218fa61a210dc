package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"mercator-hq/dyndict/pkg/config"
	"mercator-hq/dyndict/pkg/registry"
	"mercator-hq/dyndict/pkg/telemetry/health"
	"mercator-hq/dyndict/pkg/telemetry/logging"
	"mercator-hq/dyndict/pkg/telemetry/metrics"
	"mercator-hq/dyndict/pkg/telemetry/tracing"
)

// DefaultRequestTimeout bounds registry calls made by the API handlers.
const DefaultRequestTimeout = 5 * time.Second

// Options holds the components the admin server exposes.
type Options struct {
	// Registry serves the /v1/resources API. Required.
	Registry *registry.Registry

	// Checker and Health mount the probe endpoints. Both are optional.
	Checker *health.Checker
	Health  *config.HealthConfig
	Version health.VersionInfo

	// ProbesPerSecond rate limits the probe endpoints; zero disables the
	// limit.
	ProbesPerSecond int

	// Metrics is mounted at MetricsPath when set.
	Metrics     *metrics.Collector
	MetricsPath string

	// Tracer wraps every request in a server span when set.
	Tracer *tracing.Tracer

	// Logger defaults to logging.Nop().
	Logger *logging.Logger

	// RequestTimeout bounds registry calls (default: DefaultRequestTimeout).
	RequestTimeout time.Duration
}

// Server is the admin HTTP server for a registry.
type Server struct {
	config     *config.ServerConfig
	opts       Options
	logger     *logging.Logger
	httpServer *http.Server

	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
	shutdownOnce sync.Once
}

// NewServer creates an admin server. It does not listen until Start.
func NewServer(cfg *config.ServerConfig, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = config.DefaultPrometheusPath
	}

	return &Server{
		config: cfg,
		opts:   opts,
		logger: opts.Logger.With("component", "server"),
	}
}

// Start listens on the configured address and serves until ctx is cancelled
// or Shutdown is called. A listen failure is returned immediately.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		ErrorLog:          s.logger.StdLogger(slog.LevelError),
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Admin server listening", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Context cancelled, stopping admin server")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if ok {
			return err
		}
		return nil
	}
}

// Shutdown gracefully stops the server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running, srv := s.isRunning, s.httpServer
		s.mu.RUnlock()
		if !running {
			return
		}

		s.logger.Info("Stopping admin server", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Admin server shutdown failed", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("Admin server stopped")
	})

	return shutdownErr
}

// Handler builds the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.opts.Checker != nil && s.opts.Health != nil {
		health.Register(mux, s.opts.Health, s.opts.Checker, s.opts.Version, s.opts.ProbesPerSecond)
	}
	if s.opts.Metrics != nil {
		mux.Handle("GET "+s.opts.MetricsPath, s.opts.Metrics.Handler(s.logger.Slog()))
	}

	rh := &resourceHandlers{registry: s.opts.Registry, timeout: s.opts.RequestTimeout}
	mux.HandleFunc("GET /v1/resources", rh.list)
	mux.HandleFunc("GET /v1/resources/{name}", rh.get)
	mux.HandleFunc("GET /v1/resources/{name}/{key}", rh.lookup)
	mux.HandleFunc("POST /v1/resources/{name}/reload", rh.reload)

	var handler http.Handler = mux
	if s.opts.Tracer != nil {
		handler = tracing.HTTPMiddleware(s.opts.Tracer, handler)
	}
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware(handler)
	handler = RecoveryMiddleware(s.logger)(handler)

	return handler
}

// Addr returns the address the server is listening on, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
