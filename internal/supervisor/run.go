package supervisor

import (
	"context"

	"github.com/panoptes/pocs-core/internal/statemachine"
)

// Run initializes the unit and runs the control loop until it powers
// down or ctx is done, in which case it powers down itself.
//
// Each cycle applies operator commands, completes a park in progress,
// evaluates safety and sleeps the sleep delay. Observing states are
// driven by the state machine's own table, not by this loop.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.Initialize(ctx) {
		return ErrInitializeFailed
	}

	for s.Flags().KeepRunning && ctx.Err() == nil {
		s.CheckMessages(ctx)
		if !s.Flags().KeepRunning {
			break
		}

		s.finishParking(ctx)
		s.IsSafe(ctx)

		if err := s.Sleep(ctx, 0, false); err != nil {
			break
		}
	}

	s.PowerDown(context.WithoutCancel(ctx))
	return nil
}

// finishParking parks the mount while parking and then settles in parked.
func (s *Supervisor) finishParking(ctx context.Context) {
	if !s.Flags().DoStates || s.machine.State() != statemachine.StateParking {
		return
	}

	mount := s.observatory.Mount()
	if !mount.Parked() {
		if err := mount.Park(ctx); err != nil {
			s.logger.Warn("parking mount", "error", err)
			return
		}
	}
	if err := s.machine.Trigger(ctx, statemachine.EventSetPark); err != nil {
		s.logger.Warn("set park transition", "error", err)
	}
}
