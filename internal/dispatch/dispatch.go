// Package dispatch drains command queues into handlers.
//
// A single Drain call pops commands until the queue is empty or one
// command has been handled successfully. Unknown commands and failing
// handlers are skipped and draining continues, so a backlog of several
// good commands is spread over several calls while junk never stalls
// the queue.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/panoptes/pocs-core/internal/command"
	"github.com/panoptes/pocs-core/internal/queue"
)

// Handler acts on one command.
type Handler func(ctx context.Context, c command.Command) error

// Table maps each command kind to its handler. A nil handler means the
// kind is not accepted on that queue.
type Table struct {
	Park     Handler
	Shutdown Handler
}

// handler returns the handler for k, or nil.
func (t Table) handler(k command.Kind) Handler {
	switch k {
	case command.KindPark:
		return t.Park
	case command.KindShutdown:
		return t.Shutdown
	default:
		return nil
	}
}

// Outcome is what became of a drained command.
type Outcome string

const (
	OutcomeHandled Outcome = "handled"
	OutcomeIgnored Outcome = "ignored"
	OutcomeFailed  Outcome = "failed"
)

// Observer is told about every command taken off a queue.
type Observer interface {
	Dispatched(ctx context.Context, c command.Command, outcome Outcome, err error)
}

// Logger defines the logging interface for the dispatcher.
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

// Dispatcher drains queues. It is used from the control loop only.
type Dispatcher struct {
	logger    Logger
	observers []Observer
}

// New creates a dispatcher.
func New() *Dispatcher {
	return &Dispatcher{logger: noopLogger{}}
}

// SetLogger sets the logger.
func (d *Dispatcher) SetLogger(logger Logger) { d.logger = logger }

// AddObserver registers an observer.
func (d *Dispatcher) AddObserver(o Observer) { d.observers = append(d.observers, o) }

// Drain pops commands from q until it is empty or one is handled.
//
// Returns:
//   - bool: true if a command was handled successfully
//   - error: only when the queue itself fails; handler errors and corrupt
//     items are logged and skipped
func (d *Dispatcher) Drain(ctx context.Context, q queue.Queue, table Table) (bool, error) {
	for {
		c, ok, err := q.TryGet(ctx)
		if errors.Is(err, queue.ErrCorrupt) {
			// The backend has already removed the item.
			d.logger.Warn("skipping corrupt queue item", "error", err)
			continue
		}
		if err != nil {
			return false, fmt.Errorf("draining queue: %w", err)
		}
		if !ok {
			return false, nil
		}

		h := table.handler(c.Kind)
		if h == nil {
			d.logger.Debug("ignoring command", "command", c.String())
			d.notify(ctx, c, OutcomeIgnored, nil)
			continue
		}

		if err := invoke(ctx, h, c); err != nil {
			d.logger.Warn("command handler failed", "command", c.String(), "error", err)
			d.notify(ctx, c, OutcomeFailed, err)
			continue
		}

		d.logger.Info("command handled", "command", c.String())
		d.notify(ctx, c, OutcomeHandled, nil)
		return true, nil
	}
}

func (d *Dispatcher) notify(ctx context.Context, c command.Command, outcome Outcome, err error) {
	for _, o := range d.observers {
		o.Dispatched(ctx, c, outcome, err)
	}
}

// invoke calls h, turning a panic into an error.
func invoke(ctx context.Context, h Handler, c command.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h(ctx, c)
}

// Drain drains q with a default dispatcher.
func Drain(ctx context.Context, q queue.Queue, table Table) (bool, error) {
	return New().Drain(ctx, q, table)
}
