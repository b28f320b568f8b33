package safety

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/panoptes/pocs-core/internal/statemachine"
	"github.com/panoptes/pocs-core/internal/units"
	"github.com/panoptes/pocs-core/internal/weather"
)

// Defaults.
const (
	DefaultWeatherStale      = 180 * time.Second
	DefaultRequiredFreeSpace = 250_000_000 // 0.25 GB
)

// noEnforcement are the states in which an unsafe verdict does not park.
var noEnforcement = []string{
	statemachine.StateSleeping,
	statemachine.StateParked,
	statemachine.StateParking,
	statemachine.StateHousekeeping,
	statemachine.StateReady,
}

// Config holds the thresholds and simulator overrides of a Monitor.
type Config struct {
	// SimulateNight forces the darkness check to pass.
	SimulateNight bool

	// SimulateWeather forces the weather check to pass.
	SimulateWeather bool

	// WeatherStale is the maximum age of a trusted weather record.
	WeatherStale time.Duration

	// RequiredFreeSpace is the minimum free space in bytes.
	RequiredFreeSpace uint64

	// Directory is the unit's working directory, whose volume is checked.
	Directory string
}

// DarkSky answers whether it is dark enough to observe.
type DarkSky interface {
	IsDark(ctx context.Context) (bool, error)
}

// Controller is the state machine as seen by the monitor.
type Controller interface {
	State() string
	Trigger(ctx context.Context, event string) error
}

// Recorder receives every evaluated status.
type Recorder interface {
	RecordSafety(status Status, at time.Time)
}

// Logger defines the logging interface for the safety monitor.
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

// Monitor evaluates and enforces unit safety. It owns the cached
// "believed safe" flag.
//
// Evaluate is meant to be called from the control loop only; the cached
// flag may be read from any goroutine.
type Monitor struct {
	cfg       Config
	dark      DarkSky
	weather   weather.Store
	freeSpace FreeSpaceFunc
	clock     clock.PassiveClock
	logger    Logger

	controller Controller
	recorders  []Recorder

	mu     sync.RWMutex
	safe   bool
	last   Status
	lastAt time.Time
}

// NewMonitor creates a monitor. dark and store may be nil when the
// corresponding simulator is enabled.
func NewMonitor(cfg Config, dark DarkSky, store weather.Store) *Monitor {
	if cfg.WeatherStale <= 0 {
		cfg.WeatherStale = DefaultWeatherStale
	}
	if cfg.RequiredFreeSpace == 0 {
		cfg.RequiredFreeSpace = DefaultRequiredFreeSpace
	}
	return &Monitor{
		cfg:       cfg,
		dark:      dark,
		weather:   store,
		freeSpace: StatfsFreeSpace,
		clock:     clock.RealClock{},
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger.
func (m *Monitor) SetLogger(logger Logger) { m.logger = logger }

// SetClock replaces the clock used for weather staleness.
func (m *Monitor) SetClock(c clock.PassiveClock) { m.clock = c }

// SetFreeSpaceFunc replaces the free space probe.
func (m *Monitor) SetFreeSpaceFunc(fn FreeSpaceFunc) { m.freeSpace = fn }

// SetController sets the state machine that unsafe verdicts park.
// Without one, Evaluate only reports.
func (m *Monitor) SetController(c Controller) { m.controller = c }

// AddRecorder registers a recorder for evaluated statuses.
func (m *Monitor) AddRecorder(r Recorder) { m.recorders = append(m.recorders, r) }

// Evaluate runs every check, caches the verdict, records it and parks
// the unit if it is unsafe and running.
//
// Returns:
//   - Status: always the computed status, even on error
//   - error: ErrWeatherStoreUnreachable when the weather store was down
func (m *Monitor) Evaluate(ctx context.Context) (Status, error) {
	isDark := m.IsDark(ctx)
	goodWeather, weatherErr := m.IsWeatherSafe(ctx)
	freeSpace := m.HasFreeSpace(ctx)

	status := Status{
		IsDark:      isDark,
		GoodWeather: goodWeather,
		FreeSpace:   freeSpace,
	}
	now := m.clock.Now()

	m.mu.Lock()
	m.safe = status.Safe()
	m.last = status
	m.lastAt = now
	m.mu.Unlock()

	m.logger.Debug("safety evaluated",
		CheckIsDark, status.IsDark,
		CheckGoodWeather, status.GoodWeather,
		CheckFreeSpace, status.FreeSpace,
		"safe", status.Safe(),
	)

	for _, r := range m.recorders {
		r.RecordSafety(status, now)
	}

	m.enforce(ctx, status)

	return status, weatherErr
}

// enforce parks a running unit on an unsafe verdict.
func (m *Monitor) enforce(ctx context.Context, status Status) {
	if status.Safe() || m.controller == nil {
		return
	}

	state := m.controller.State()
	if slices.Contains(noEnforcement, state) {
		return
	}

	m.logger.Warn("unit is unsafe, parking", "state", state)
	if err := m.controller.Trigger(ctx, statemachine.EventPark); err != nil {
		m.logger.Error("park transition failed", "state", state, "error", err)
	}
}

// IsDark reports whether it is dark, or true under the night simulator.
// Ephemeris errors count as not dark.
func (m *Monitor) IsDark(ctx context.Context) bool {
	if m.cfg.SimulateNight {
		return true
	}
	if m.dark == nil {
		m.logger.Warn("no ephemeris available, assuming daylight")
		return false
	}

	dark, err := m.dark.IsDark(ctx)
	if err != nil {
		m.logger.Warn("darkness check failed", "error", err)
		return false
	}
	return dark
}

// IsWeatherSafe reports the latest weather verdict, or true under the
// weather simulator.
//
// A missing, undecodable or stale record is unsafe. An unreachable store
// is unsafe and also returns ErrWeatherStoreUnreachable.
func (m *Monitor) IsWeatherSafe(ctx context.Context) (bool, error) {
	if m.cfg.SimulateWeather {
		return true, nil
	}
	if m.weather == nil {
		m.logger.Warn("no weather store configured")
		return false, ErrWeatherStoreUnreachable
	}

	if err := m.weather.Reachable(ctx); err != nil {
		m.logger.Warn("weather store unreachable", "error", err)
		return false, fmt.Errorf("%w: %w", ErrWeatherStoreUnreachable, err)
	}

	record, err := m.weather.Latest(ctx)
	switch {
	case errors.Is(err, weather.ErrNoRecord):
		m.logger.Info("no weather record found")
		return false, nil
	case errors.Is(err, weather.ErrUnreachable):
		m.logger.Warn("weather store unreachable", "error", err)
		return false, fmt.Errorf("%w: %w", ErrWeatherStoreUnreachable, err)
	case err != nil:
		m.logger.Warn("reading weather record", "error", err)
		return false, nil
	}

	now := m.clock.Now()
	if record.Stale(now, m.cfg.WeatherStale) {
		m.logger.Warn("weather record is stale",
			"age", record.Age(now).Round(time.Second).String(),
			"threshold", m.cfg.WeatherStale.String(),
		)
		return false, nil
	}

	return record.Safe, nil
}

// HasFreeSpace reports whether the working volume has at least the
// required free space. An unreadable volume counts as full.
func (m *Monitor) HasFreeSpace(_ context.Context) bool {
	free, err := m.freeSpace(m.cfg.Directory)
	if err != nil {
		m.logger.Warn("free space check failed", "directory", m.cfg.Directory, "error", err)
		return false
	}

	ok := units.Gigabytes(free) >= units.Gigabytes(m.cfg.RequiredFreeSpace)
	if !ok {
		m.logger.Warn("low disk space",
			"free", units.Format(free),
			"required", units.Format(m.cfg.RequiredFreeSpace),
		)
	}
	return ok
}

// Safe returns the cached verdict of the last evaluation. It is false
// before the first evaluation.
func (m *Monitor) Safe() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.safe
}

// Last returns the last evaluated status and when it was evaluated.
// The time is zero before the first evaluation.
func (m *Monitor) Last() (Status, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.lastAt
}
