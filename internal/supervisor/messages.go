package supervisor

import (
	"context"

	"github.com/panoptes/pocs-core/internal/command"
	"github.com/panoptes/pocs-core/internal/dispatch"
)

// CheckMessages applies at most one command from the command queue and
// at most one from the schedule queue. It does nothing when messaging
// is disabled.
func (s *Supervisor) CheckMessages(ctx context.Context) {
	if s.messaging == nil {
		return
	}

	if _, err := s.dispatcher.Drain(ctx, s.commands, s.commandTable()); err != nil {
		s.logger.Warn("checking command queue", "error", err)
	}
	// No schedule commands are accepted yet; draining still clears the queue.
	if _, err := s.dispatcher.Drain(ctx, s.schedule, dispatch.Table{}); err != nil {
		s.logger.Warn("checking schedule queue", "error", err)
	}
}

func (s *Supervisor) commandTable() dispatch.Table {
	return dispatch.Table{
		Park:     s.interruptAndPark,
		Shutdown: s.interruptAndShutdown,
	}
}

func (s *Supervisor) interrupt(c command.Command) {
	s.logger.Info("interrupted by operator", "command", c.String())
	s.updateFlags(func(f *RunFlags) { f.Interrupted = true })
}

func (s *Supervisor) interruptAndPark(ctx context.Context, c command.Command) error {
	s.interrupt(c)
	return s.Park(ctx)
}

func (s *Supervisor) interruptAndShutdown(ctx context.Context, c command.Command) error {
	s.interrupt(c)
	s.PowerDown(ctx)
	return nil
}
