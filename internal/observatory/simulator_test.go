package observatory

import (
	"context"
	"errors"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"
)

func TestNightContains(t *testing.T) {
	day := func(h int) time.Time { return time.Date(2026, 10, 16, h, 30, 0, 0, time.UTC) }

	tests := []struct {
		name  string
		night Night
		hour  int
		want  bool
	}{
		{name: "wrapping evening", night: DefaultNight, hour: 21, want: true},
		{name: "wrapping early morning", night: DefaultNight, hour: 3, want: true},
		{name: "wrapping end hour", night: DefaultNight, hour: 5, want: false},
		{name: "wrapping midday", night: DefaultNight, hour: 12, want: false},
		{name: "plain window inside", night: Night{Start: 1, End: 4}, hour: 2, want: true},
		{name: "plain window outside", night: Night{Start: 1, End: 4}, hour: 4, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.night.Contains(day(tt.hour)); got != tt.want {
				t.Errorf("Contains(%02d:30) = %v, want %v", tt.hour, got, tt.want)
			}
		})
	}
}

func TestSimulatorIsDark(t *testing.T) {
	clk := clocktesting.NewFakeClock(time.Date(2026, 10, 16, 23, 0, 0, 0, time.UTC))
	sim := NewSimulator("Test Unit", DefaultNight, clk)

	dark, err := sim.IsDark(context.Background())
	if err != nil || !dark {
		t.Errorf("IsDark() at 23:00 = (%v, %v), want (true, nil)", dark, err)
	}

	clk.Step(12 * time.Hour)
	dark, err = sim.IsDark(context.Background())
	if err != nil || dark {
		t.Errorf("IsDark() at 11:00 = (%v, %v), want (false, nil)", dark, err)
	}
}

func TestSimulatedMount(t *testing.T) {
	ctx := context.Background()
	m := NewSimulatedMount()

	if err := m.Park(ctx); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Park() before Initialize error = %v, want %v", err, ErrNotConnected)
	}
	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !m.Connected() || m.Parked() {
		t.Errorf("after Initialize: Connected() = %v, Parked() = %v", m.Connected(), m.Parked())
	}

	jammed := errors.New("jammed")
	m.FailPark(jammed)
	if err := m.Park(ctx); !errors.Is(err, jammed) {
		t.Errorf("Park() error = %v, want %v", err, jammed)
	}
	if m.Parked() {
		t.Error("Parked() = true after failed park")
	}

	m.FailPark(nil)
	if err := m.Park(ctx); err != nil {
		t.Fatalf("Park() error = %v", err)
	}
	if !m.Parked() {
		t.Error("Parked() = false after Park")
	}
	if got := m.ParkCalls(); got != 3 {
		t.Errorf("ParkCalls() = %d, want 3", got)
	}
}

func TestSimulatorStatus(t *testing.T) {
	sim := NewSimulator("Test Unit", DefaultNight, clocktesting.NewFakePassiveClock(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)))

	status, err := sim.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status["name"] != "Test Unit" {
		t.Errorf("name = %v, want Test Unit", status["name"])
	}
	if status["observer_time"] != "2026-10-16T00:00:00Z" {
		t.Errorf("observer_time = %v, want 2026-10-16T00:00:00Z", status["observer_time"])
	}
}
