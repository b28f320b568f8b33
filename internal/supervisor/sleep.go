package supervisor

import (
	"context"
	"time"
)

// Sleep blocks for d, or the configured sleep delay when d <= 0.
//
// Waits of 10s or more are cut into 10s slices with one CheckMessages
// after each, so an operator command is picked up within about 10s.
// With withStatus set, a status broadcast precedes any sleep longer than
// 2s. Sleep returns early with the context's error when ctx is done.
func (s *Supervisor) Sleep(ctx context.Context, d time.Duration, withStatus bool) error {
	if d <= 0 {
		d = s.sleepDelay
	}

	if withStatus && d > statusMinSleep {
		s.Status(ctx)
	}

	for d >= sleepSlice {
		if err := s.wait(ctx, sleepSlice); err != nil {
			return err
		}
		s.CheckMessages(ctx)
		d -= sleepSlice
	}

	return s.wait(ctx, d)
}

// WaitUntilSafe evaluates safety until the unit is safe, sleeping the
// safe delay with a status broadcast between evaluations. There is no retry limit; ctx is the
// only way out other than a safe verdict.
func (s *Supervisor) WaitUntilSafe(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.IsSafe(ctx) {
			return nil
		}

		s.logger.Info("waiting for safe conditions", "retry_in", s.safeDelay.String())
		if err := s.Sleep(ctx, s.safeDelay, true); err != nil {
			return err
		}
	}
}

func (s *Supervisor) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := s.clock.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}
