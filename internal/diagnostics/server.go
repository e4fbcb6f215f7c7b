package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/wakelight/internal/protocol"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
	readTimeout             = 5 * time.Second
	writeTimeout            = 10 * time.Second
	idleTimeout             = 60 * time.Second
)

// HealthCheck reports whether a component is usable.
type HealthCheck func(ctx context.Context) error

// StatusSource builds the status snapshot.
type StatusSource interface {
	Collect(ctx context.Context) protocol.Status
}

// LightState reports the light flag.
type LightState interface {
	IsOn() bool
}

// Logger is the logging interface used by the server.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps holds the server's collaborators.
type Deps struct {
	Status StatusSource
	Light  LightState
	// Checks maps a component name to its health check.
	Checks  map[string]HealthCheck
	Version string
}

// Server is the diagnostics HTTP server.
type Server struct {
	addr   string
	deps   Deps
	logger Logger
	server *http.Server
}

// New creates a server for addr. Call Start to listen.
func New(addr string, deps Deps, logger Logger) *Server {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Server{addr: addr, deps: deps, logger: logger}
}

// Start binds the listener and serves in the background. Binding errors
// are returned; later serve errors are logged.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	s.logger.Info("diagnostics server listening", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("diagnostics server error", "error", err)
		}
	}()
	return nil
}

// Close shuts the server down, waiting for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down diagnostics server: %w", err)
	}
	return nil
}
