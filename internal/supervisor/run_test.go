package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"k8s.io/utils/clock"

	"github.com/panoptes/pocs-core/internal/statemachine"
)

func newRunning(t *testing.T, f *fixture) *Supervisor {
	t.Helper()
	sup, err := New(Deps{
		Name:          "Test Unit",
		SleepDelay:    5 * time.Millisecond,
		Machine:       f.machine,
		Observatory:   f.sim,
		Safety:        f.safety,
		Messaging:     f.messaging,
		CommandQueue:  f.commands,
		ScheduleQueue: f.schedule,
		Clock:         clock.RealClock{},
	})
	if err != nil {
		t.Fatal(err)
	}
	return sup
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRun_ParkCommandThenCancel(t *testing.T) {
	f := newFixture(t, statemachine.StateObserving)
	sup := newRunning(t, f)
	f.enqueue(t, "park")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- sup.Run(ctx) }()

	waitFor(t, "parked", func() bool { return f.machine.State() == statemachine.StateParked })
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if sup.Flags().Connected {
		t.Error("Connected = true after Run returned")
	}
	if got := f.sim.SimulatedMount().ParkCalls(); got != 1 {
		t.Errorf("mount parked %d times, want 1", got)
	}
}

func TestRun_ShutdownCommand(t *testing.T) {
	f := newFixture(t, statemachine.StateObserving)
	sup := newRunning(t, f)
	f.enqueue(t, "shutdown")

	errCh := make(chan error, 1)
	go func() { errCh <- sup.Run(context.Background()) }()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after shutdown command")
	}

	flags := sup.Flags()
	if flags.KeepRunning || flags.Connected {
		t.Errorf("Flags() = %+v, want stopped", flags)
	}
	if !f.sim.PoweredDown() {
		t.Error("observatory not powered down")
	}
}

func TestRun_InitializeFailure(t *testing.T) {
	f := newFixture(t, statemachine.StateSleeping)
	f.sim.SimulatedMount().FailInitialize(errors.New("no mount"))
	sup := newRunning(t, f)

	if err := sup.Run(context.Background()); !errors.Is(err, ErrInitializeFailed) {
		t.Errorf("Run() error = %v, want %v", err, ErrInitializeFailed)
	}
}
