package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/panoptes/pocs-core/internal/audit"
	"github.com/panoptes/pocs-core/internal/infrastructure/config"
	"github.com/panoptes/pocs-core/internal/infrastructure/logging"
	"github.com/panoptes/pocs-core/internal/messaging"
	"github.com/panoptes/pocs-core/internal/safety"
	"github.com/panoptes/pocs-core/internal/supervisor"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Unit is the supervised unit as seen by the status endpoint.
type Unit interface {
	Name() string
	State() string
	Flags() supervisor.RunFlags
	Units() []messaging.Unit
}

// SafetyReporter exposes the most recent safety evaluation.
type SafetyReporter interface {
	Last() (safety.Status, time.Time)
}

// HealthChecker is implemented by the infrastructure clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Unit     Unit
	Safety   SafetyReporter           // optional
	Commands audit.Repository         // optional: enables /api/v1/commands
	Checks   map[string]HealthChecker // optional: reported by /api/v1/health
	Metrics  http.Handler             // optional: served at /metrics
	Version  string
}

// Server is the HTTP status server of a unit.
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	unit     Unit
	safety   SafetyReporter
	commands audit.Repository
	checks   map[string]HealthChecker
	metrics  http.Handler
	version  string

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (logger, unit) plus optional reporters
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Unit == nil {
		return nil, fmt.Errorf("unit is required")
	}

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		unit:     deps.Unit,
		safety:   deps.Safety,
		commands: deps.Commands,
		checks:   deps.Checks,
		metrics:  deps.Metrics,
		version:  deps.Version,
	}, nil
}

// Start binds the listener and serves in a background goroutine. Binding
// errors are returned; errors while serving are logged.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}

	s.addr = ln.Addr()
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", s.addr.String())

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
