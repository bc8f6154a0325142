package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"ferryhq/ferry/pkg/config"
	"ferryhq/ferry/pkg/proxy/middleware"
	"ferryhq/ferry/pkg/telemetry/health"
	"ferryhq/ferry/pkg/telemetry/tracing"
)

// Route labels for the non-OpenAI endpoints.
const (
	RouteHealth    = "/health"
	RouteReady     = "/ready"
	RouteVersion   = "/version"
	RouteUnmatched = "unmatched"
)

// MetricsSource is what the server needs from the metrics collector.
type MetricsSource interface {
	middleware.RequestObserver
	Handler() http.Handler
}

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Options wires a Server.
type Options struct {
	Config *config.Config
	Chat   http.Handler
	Health *health.Checker

	// Metrics, when set, counts requests and serves the metrics path.
	Metrics MetricsSource

	Build  BuildInfo
	Logger *slog.Logger
}

// Server is the gateway's HTTP server.
type Server struct {
	cfg     *config.Config
	chat    http.Handler
	health  *health.Checker
	metrics MetricsSource
	build   BuildInfo
	logger  *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	running    bool
}

// New validates opts and returns a Server. Nothing listens until Start.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("server config is nil")
	}
	if opts.Chat == nil {
		return nil, errors.New("chat handler is nil")
	}
	if opts.Health == nil {
		opts.Health = health.New(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		cfg:     opts.Config,
		chat:    opts.Chat,
		health:  opts.Health,
		metrics: opts.Metrics,
		build:   opts.Build,
		logger:  opts.Logger,
	}, nil
}

// Start binds the listen address and serves until ctx is done, then shuts
// down gracefully. A bind failure is returned immediately.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	srvCfg := s.cfg.Server
	ln, err := net.Listen("tcp", srvCfg.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", srvCfg.ListenAddress, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: srvCfg.ReadTimeout,
		ReadTimeout:       srvCfg.ReadTimeout,
		WriteTimeout:      srvCfg.WriteTimeout,
		IdleTimeout:       srvCfg.IdleTimeout,
		MaxHeaderBytes:    srvCfg.MaxHeaderBytes,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.running = true
	httpServer := s.httpServer
	s.mu.Unlock()

	s.logger.Info("gateway listening",
		"address", ln.Addr().String(),
		"auth", srvCfg.AuthToken != "",
		"metrics", s.metrics != nil,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.WithoutCancel(ctx))
	case err := <-errCh:
		s.setStopped()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

// Shutdown stops accepting connections and waits, up to the configured
// shutdown timeout, for in-flight requests. Open streams see their request
// context cancelled once the timeout passes.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	running := s.running
	s.mu.Unlock()
	if !running || httpServer == nil {
		return nil
	}

	timeout := s.cfg.Server.ShutdownTimeout
	s.logger.Info("shutting down gateway", "timeout", timeout.String())

	shutdownCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("graceful shutdown incomplete, closing connections", "error", err)
		_ = httpServer.Close()
	}
	s.setStopped()
	s.logger.Info("gateway stopped")
	if err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

func (s *Server) setStopped() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning reports whether Start is serving.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Handler returns the routed handler with the shared middleware chain.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.routes()

	handler = tracing.HTTPMiddleware(handler)
	handler = middleware.RecoveryMiddleware(s.logger)(handler)
	handler = middleware.LoggingMiddleware(s.logger)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.CORSMiddleware(&s.cfg.Server.CORS)(handler)

	return handler
}
