package audit

import (
	"context"

	"k8s.io/utils/clock"

	"github.com/panoptes/pocs-core/internal/command"
	"github.com/panoptes/pocs-core/internal/dispatch"
)

// Logger is used to report write failures; the log never fails the
// caller.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// CommandLog records commands as the listener receives them and as the
// dispatcher resolves them.
type CommandLog struct {
	repo   Repository
	clock  clock.PassiveClock
	logger Logger
}

// NewCommandLog creates a command log over repo.
func NewCommandLog(repo Repository) *CommandLog {
	return &CommandLog{repo: repo, clock: clock.RealClock{}, logger: noopLogger{}}
}

// SetLogger sets the logger.
func (l *CommandLog) SetLogger(logger Logger) { l.logger = logger }

// SetClock replaces the clock used for handled_at.
func (l *CommandLog) SetClock(c clock.PassiveClock) { l.clock = c }

// Received logs a newly queued command.
func (l *CommandLog) Received(ctx context.Context, c command.Command) {
	err := l.repo.Create(ctx, &Entry{
		ID:         c.ID,
		Kind:       string(c.Kind),
		Payload:    c.Raw,
		ReceivedAt: c.ReceivedAt,
	})
	if err != nil {
		l.logger.Warn("logging received command", "command", c.String(), "error", err)
	}
}

// Dispatched logs what the dispatcher did with a command.
func (l *CommandLog) Dispatched(ctx context.Context, c command.Command, outcome dispatch.Outcome, handlerErr error) {
	at := l.clock.Now()
	if err := l.repo.Resolve(ctx, c.ID, string(outcome), handlerErr, at); err != nil {
		l.logger.Warn("logging dispatched command", "command", c.String(), "error", err)
	}
}
