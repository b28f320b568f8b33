package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/panoptes/pocs-core/internal/process"
)

const (
	readyTimeout      = 10 * time.Second
	readyPollInterval = 100 * time.Millisecond
	dialTimeout       = 500 * time.Millisecond

	configFileMode = 0600
	configDirMode  = 0750
)

// Logger defines the logging interface for relays.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Relay is a supervised broker subprocess forwarding every message
// published on its front port to subscribers on its back port.
type Relay struct {
	config  Config
	process *process.Manager
	logger  Logger
}

// New creates a relay. The subprocess is not started until Start.
func New(cfg Config) (*Relay, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Relay{
		config: cfg,
		process: process.NewManager(process.Config{
			Name:            "relay-" + cfg.Name,
			Binary:          cfg.Binary,
			Args:            cfg.BuildArgs(),
			GracefulTimeout: cfg.GracefulTimeout,
		}),
		logger: noopLogger{},
	}, nil
}

// SetLogger sets the logger for the relay and its process manager.
func (r *Relay) SetLogger(logger Logger) {
	r.logger = logger
	r.process.SetLogger(logger)
}

// Config returns the relay configuration.
func (r *Relay) Config() Config {
	return r.config
}

// Start writes the broker configuration, launches the broker and blocks
// until both listeners accept connections.
func (r *Relay) Start(ctx context.Context) error {
	if err := os.MkdirAll(r.config.ConfigDir, configDirMode); err != nil {
		return fmt.Errorf("creating relay config dir: %w", err)
	}
	if err := os.WriteFile(r.config.ConfigPath(), []byte(r.config.BuildConfigFile()), configFileMode); err != nil {
		return fmt.Errorf("writing relay config: %w", err)
	}

	if err := r.process.Start(ctx); err != nil {
		return err
	}

	for _, addr := range []string{r.config.FrontAddr(), r.config.BackAddr()} {
		if err := r.waitForReady(ctx, addr); err != nil {
			r.process.Stop() //nolint:errcheck // already failing
			return err
		}
	}

	r.logger.Info("relay ready",
		"relay", r.config.Name,
		"front", r.config.FrontAddr(),
		"back", r.config.BackAddr(),
		"pid", r.process.PID(),
	)
	return nil
}

// waitForReady polls addr until it accepts a TCP connection.
func (r *Relay) waitForReady(ctx context.Context, addr string) error {
	deadline := time.Now().Add(readyTimeout)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for relay %s: %w", r.config.Name, ctx.Err())
		default:
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s on %s after %v", ErrNotReady, r.config.Name, addr, readyTimeout)
		}

		if !r.process.IsRunning() {
			if lastErr := r.process.LastError(); lastErr != nil {
				return fmt.Errorf("%w: %s exited: %w", ErrNotReady, r.config.Name, lastErr)
			}
			return fmt.Errorf("%w: %s exited", ErrNotReady, r.config.Name)
		}

		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err == nil {
			conn.Close()
			return nil
		}

		time.Sleep(readyPollInterval)
	}
}

// Name returns the unit name of the relay.
func (r *Relay) Name() string {
	return r.process.Name()
}

// PID returns the broker's process ID, or 0 if it never started.
func (r *Relay) PID() int {
	return r.process.PID()
}

// Alive reports whether the broker process is running.
func (r *Relay) Alive() bool {
	return r.process.IsRunning()
}

// Terminate stops the broker and removes its configuration file.
func (r *Relay) Terminate() error {
	err := r.process.Stop()
	if rmErr := os.Remove(r.config.ConfigPath()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		r.logger.Warn("removing relay config", "relay", r.config.Name, "error", rmErr)
	}
	return err
}

// Uptime returns how long the broker has been running, or 0.
func (r *Relay) Uptime() time.Duration {
	return r.process.Uptime()
}
