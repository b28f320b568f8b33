package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/panoptes/pocs-core/internal/messaging"
	"github.com/panoptes/pocs-core/internal/safety"
	"github.com/panoptes/pocs-core/internal/statemachine"
)

func TestSleep_ChecksMessagesEveryTenSeconds(t *testing.T) {
	f := newFixture(t, statemachine.StateObserving)
	cq := &countingQueue{Queue: f.commands, clock: f.clock}
	sup := f.build(t, cq)
	autoStep(t, f.clock, time.Second)

	if err := sup.Sleep(context.Background(), 25*time.Second, false); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}

	want := []time.Time{testStart.Add(10 * time.Second), testStart.Add(20 * time.Second)}
	cq.mu.Lock()
	got := cq.tries
	cq.mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("queue checked %d times, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("check %d at %v, want %v", i, got[i], want[i])
		}
	}
	if now := f.clock.Now(); !now.Equal(testStart.Add(25 * time.Second)) {
		t.Errorf("clock = %v, want %v", now, testStart.Add(25*time.Second))
	}
}

func TestSleep_AppliesCommandDuringSlice(t *testing.T) {
	f := newFixture(t, statemachine.StateObserving)
	f.enqueue(t, "park")
	autoStep(t, f.clock, time.Second)

	if err := f.sup.Sleep(context.Background(), 12*time.Second, false); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	if got := f.machine.State(); got != statemachine.StateParking {
		t.Errorf("State() = %q, want %q", got, statemachine.StateParking)
	}
}

func TestSleep_Cancelled(t *testing.T) {
	f := newFixture(t, statemachine.StateObserving)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.sup.Sleep(ctx, time.Minute, false); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() error = %v, want %v", err, context.Canceled)
	}
}

func TestSleep_WithStatus(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want int
	}{
		{name: "long sleep broadcasts", d: 5 * time.Second, want: 1},
		{name: "short sleep is quiet", d: 2 * time.Second, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, statemachine.StateReady)
			autoStep(t, f.clock, time.Second)

			if err := f.sup.Sleep(context.Background(), tt.d, true); err != nil {
				t.Fatalf("Sleep() error = %v", err)
			}
			if got := len(f.messaging.on(messaging.ChannelStatus)); got != tt.want {
				t.Errorf("STATUS broadcasts = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWaitUntilSafe(t *testing.T) {
	f := newFixture(t, statemachine.StateReady)
	f.safety.verdicts = []bool{false, false, true}
	autoStep(t, f.clock, time.Second)

	if err := f.sup.WaitUntilSafe(context.Background()); err != nil {
		t.Fatalf("WaitUntilSafe() error = %v", err)
	}

	if got := f.safety.count(); got != 3 {
		t.Errorf("evaluations = %d, want 3", got)
	}
	if now := f.clock.Now(); !now.Equal(testStart.Add(60 * time.Second)) {
		t.Errorf("clock = %v, want %v", now, testStart.Add(60*time.Second))
	}
	if got := len(f.messaging.on(messaging.ChannelStatus)); got != 2 {
		t.Errorf("STATUS broadcasts = %d, want one per retry (2)", got)
	}
}

func TestWaitUntilSafe_Cancelled(t *testing.T) {
	f := newFixture(t, statemachine.StateReady)
	f.safety.verdicts = []bool{false}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.sup.WaitUntilSafe(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("WaitUntilSafe() error = %v, want %v", err, context.Canceled)
	}
}

func TestIsSafe_ParksRunningUnit(t *testing.T) {
	tests := []struct {
		state string
		want  string
	}{
		{state: statemachine.StateObserving, want: statemachine.StateParking},
		{state: statemachine.StateSlewing, want: statemachine.StateParking},
		{state: statemachine.StateReady, want: statemachine.StateReady},
		{state: statemachine.StateParked, want: statemachine.StateParked},
		{state: statemachine.StateSleeping, want: statemachine.StateSleeping},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			f := newFixture(t, tt.state)
			monitor := safety.NewMonitor(safety.Config{SimulateNight: true, SimulateWeather: true}, nil, nil)
			monitor.SetFreeSpaceFunc(func(string) (uint64, error) { return 0, nil })
			monitor.SetController(f.machine)

			var transitions int
			f.machine.OnTransition(func(string, string, string) { transitions++ })

			sup, err := New(Deps{Machine: f.machine, Observatory: f.sim, Safety: monitor, Clock: f.clock})
			if err != nil {
				t.Fatal(err)
			}

			for i := 0; i < 2; i++ {
				if sup.IsSafe(context.Background()) {
					t.Fatal("IsSafe() = true with a full disk")
				}
			}

			if got := f.machine.State(); got != tt.want {
				t.Errorf("State() = %q, want %q", got, tt.want)
			}
			wantTransitions := 0
			if tt.want != tt.state {
				wantTransitions = 1
			}
			if transitions != wantTransitions {
				t.Errorf("transitions = %d, want %d", transitions, wantTransitions)
			}
		})
	}
}
