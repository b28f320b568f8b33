package observatory

import (
	"context"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// SimulatedMount is an in-memory mount that parks instantly.
type SimulatedMount struct {
	mu        sync.Mutex
	connected bool
	parked    bool
	initErr   error
	parkErr   error
	initCalls int
	parkCalls int
}

// NewSimulatedMount returns a disconnected, unparked mount.
func NewSimulatedMount() *SimulatedMount {
	return &SimulatedMount{}
}

// FailInitialize makes subsequent Initialize calls return err.
func (m *SimulatedMount) FailInitialize(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initErr = err
}

// FailPark makes subsequent Park calls return err without parking.
func (m *SimulatedMount) FailPark(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parkErr = err
}

// Initialize connects the mount.
func (m *SimulatedMount) Initialize(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initCalls++
	if m.initErr != nil {
		return m.initErr
	}
	m.connected = true
	m.parked = false
	return nil
}

// Connected reports whether Initialize succeeded.
func (m *SimulatedMount) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Parked reports whether the mount is parked.
func (m *SimulatedMount) Parked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.parked
}

// Park parks the mount.
func (m *SimulatedMount) Park(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parkCalls++
	if !m.connected {
		return ErrNotConnected
	}
	if m.parkErr != nil {
		return m.parkErr
	}
	m.parked = true
	return nil
}

// ParkCalls returns how many times Park was called.
func (m *SimulatedMount) ParkCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.parkCalls
}

// InitializeCalls returns how many times Initialize was called.
func (m *SimulatedMount) InitializeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initCalls
}

// Night is a fixed nightly window in hours of the unit's local day.
// Start after End wraps past midnight.
type Night struct {
	Start int
	End   int
	Loc   *time.Location
}

// DefaultNight is dark from 19:00 to 05:00 UTC.
var DefaultNight = Night{Start: 19, End: 5, Loc: time.UTC}

// Contains reports whether t falls inside the window.
func (n Night) Contains(t time.Time) bool {
	loc := n.Loc
	if loc == nil {
		loc = time.UTC
	}
	h := t.In(loc).Hour()
	if n.Start <= n.End {
		return h >= n.Start && h < n.End
	}
	return h >= n.Start || h < n.End
}

// Simulator is an Observatory without hardware. Darkness follows a
// fixed Night window instead of an ephemeris.
type Simulator struct {
	mount *SimulatedMount
	night Night
	clock clock.PassiveClock
	name  string

	mu           sync.Mutex
	poweredDown  bool
	powerDownErr error
}

// NewSimulator creates a simulated unit.
func NewSimulator(name string, night Night, c clock.PassiveClock) *Simulator {
	if c == nil {
		c = clock.RealClock{}
	}
	return &Simulator{
		mount: NewSimulatedMount(),
		night: night,
		clock: c,
		name:  name,
	}
}

// Mount returns the simulated mount.
func (s *Simulator) Mount() Mount {
	return s.mount
}

// SimulatedMount returns the concrete mount for test control.
func (s *Simulator) SimulatedMount() *SimulatedMount {
	return s.mount
}

// IsDark reports whether the clock is inside the night window.
func (s *Simulator) IsDark(_ context.Context) (bool, error) {
	return s.night.Contains(s.clock.Now()), nil
}

// Status returns the unit name and mount state.
func (s *Simulator) Status(_ context.Context) (map[string]any, error) {
	return map[string]any{
		"name":          s.name,
		"observer_time": s.clock.Now().UTC().Format(time.RFC3339),
		"mount": map[string]any{
			"connected": s.mount.Connected(),
			"parked":    s.mount.Parked(),
		},
	}, nil
}

// FailPowerDown makes PowerDown return err.
func (s *Simulator) FailPowerDown(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.powerDownErr = err
}

// PowerDown marks the simulated hardware as released.
func (s *Simulator) PowerDown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poweredDown = true
	return s.powerDownErr
}

// PoweredDown reports whether PowerDown has been called.
func (s *Simulator) PoweredDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poweredDown
}
