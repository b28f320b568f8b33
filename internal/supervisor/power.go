package supervisor

import (
	"context"
	"slices"

	"github.com/panoptes/pocs-core/internal/statemachine"
)

// States from which power-down does not start a park transition.
var parkedOrParking = []string{
	statemachine.StateParking,
	statemachine.StateParked,
	statemachine.StateSleeping,
	statemachine.StateHousekeeping,
}

// Initialize initializes the mount once. On failure the unit announces
// the problem and powers down before returning false.
func (s *Supervisor) Initialize(ctx context.Context) bool {
	if s.Flags().Initialized {
		return true
	}

	s.Say("Initializing the system! Woo!")

	if err := s.observatory.Mount().Initialize(ctx); err != nil {
		s.logger.Error("initializing mount", "error", err)
		s.Say("Oh wait. There was a problem initializing: " + err.Error())
		s.Say("Since we didn't initialize, I'm going to exit.")
		s.PowerDown(ctx)
		return false
	}

	s.updateFlags(func(f *RunFlags) { f.Initialized = true })
	s.Status(ctx)
	return true
}

// Park fires the park transition.
func (s *Supervisor) Park(ctx context.Context) error {
	return s.machine.Trigger(ctx, statemachine.EventPark)
}

// PowerDown brings the unit to a safe terminal state. It does nothing
// unless the unit is connected, so only the first call has any effect.
//
// Each step is attempted even if an earlier one failed:
//  1. announce and power down the observatory
//  2. park through the state machine if running and unparked
//  3. finish a park already in progress
//  4. park the mount directly if it is still not parked
//  5. terminate every live messaging unit and close the publisher
//  6. clear the running flags for good
func (s *Supervisor) PowerDown(ctx context.Context) {
	if !s.Flags().Connected {
		return
	}

	s.logger.Info("shutting down", "unit", s.name)
	s.Say("I'm powering down")

	if err := s.observatory.PowerDown(ctx); err != nil {
		s.logger.Warn("observatory power down", "error", err)
	}

	mount := s.observatory.Mount()

	if state := s.machine.State(); !slices.Contains(parkedOrParking, state) && mount.Connected() && !mount.Parked() {
		s.logger.Info("parking mount", "state", state)
		if err := s.Park(ctx); err != nil {
			s.logger.Warn("park transition", "error", err)
		}
	}

	if s.machine.State() == statemachine.StateParking && mount.Connected() && mount.Parked() {
		if err := s.machine.Trigger(ctx, statemachine.EventSetPark); err != nil {
			s.logger.Warn("set park transition", "error", err)
		}
	}

	if !mount.Parked() {
		s.logger.Warn("mount not parked, parking directly")
		if err := mount.Park(ctx); err != nil {
			s.logger.Error("direct mount park", "error", err)
		}
	}

	s.stopMessaging()

	s.updateFlags(func(f *RunFlags) {
		f.KeepRunning = false
		f.DoStates = false
		f.DoCmdCheck = false
		f.Connected = false
	})

	s.logger.Info("power down complete", "unit", s.name)
}

// stopMessaging terminates every unit still alive, then closes the
// publisher.
func (s *Supervisor) stopMessaging() {
	if s.messaging == nil {
		return
	}

	for _, u := range s.messaging.Units() {
		if !u.Alive() {
			continue
		}
		s.logger.Debug("terminating unit", "unit", u.Name(), "pid", u.PID())
		if err := u.Terminate(); err != nil {
			s.logger.Warn("terminating unit", "unit", u.Name(), "error", err)
		}
	}

	if err := s.messaging.ClosePublisher(); err != nil {
		s.logger.Warn("closing publisher", "error", err)
	}
}
