package statemachine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/looplab/fsm"
)

// States.
const (
	StateSleeping     = "sleeping"
	StateReady        = "ready"
	StateScheduling   = "scheduling"
	StateSlewing      = "slewing"
	StatePointing     = "pointing"
	StateTracking     = "tracking"
	StateObserving    = "observing"
	StateAnalyzing    = "analyzing"
	StateParking      = "parking"
	StateParked       = "parked"
	StateHousekeeping = "housekeeping"
)

// Events.
const (
	EventGetReady       = "get_ready"
	EventSchedule       = "schedule"
	EventStartSlewing   = "start_slewing"
	EventAdjustPointing = "adjust_pointing"
	EventTrack          = "track"
	EventObserve        = "observe"
	EventAnalyze        = "analyze"
	EventPark           = "park"
	EventSetPark        = "set_park"
	EventCleanUp        = "clean_up"
	EventGotoSleep      = "goto_sleep"
)

// States returns every state in the table.
func States() []string {
	return []string{
		StateSleeping, StateReady, StateScheduling, StateSlewing, StatePointing,
		StateTracking, StateObserving, StateAnalyzing, StateParking, StateParked,
		StateHousekeeping,
	}
}

// parkable are the states a park event may leave from.
var parkable = []string{
	StateReady, StateScheduling, StateSlewing, StatePointing,
	StateTracking, StateObserving, StateAnalyzing,
}

func events() fsm.Events {
	return fsm.Events{
		{Name: EventGetReady, Src: []string{StateSleeping, StateParked}, Dst: StateReady},
		{Name: EventSchedule, Src: []string{StateReady, StateAnalyzing}, Dst: StateScheduling},
		{Name: EventStartSlewing, Src: []string{StateScheduling}, Dst: StateSlewing},
		{Name: EventAdjustPointing, Src: []string{StateSlewing}, Dst: StatePointing},
		{Name: EventTrack, Src: []string{StatePointing}, Dst: StateTracking},
		{Name: EventObserve, Src: []string{StateTracking}, Dst: StateObserving},
		{Name: EventAnalyze, Src: []string{StateObserving}, Dst: StateAnalyzing},

		{Name: EventPark, Src: parkable, Dst: StateParking},
		{Name: EventSetPark, Src: []string{StateParking}, Dst: StateParked},
		{Name: EventCleanUp, Src: []string{StateParked}, Dst: StateHousekeeping},
		{Name: EventGotoSleep, Src: []string{StateHousekeeping}, Dst: StateSleeping},
	}
}

// Guard may veto an event by returning an error.
type Guard func(ctx context.Context, from, to string) error

// TransitionFunc observes completed transitions.
type TransitionFunc func(event, from, to string)

// Logger defines the logging interface for the state machine.
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

// Machine wraps a looplab FSM with the unit's transition table.
//
// Thread Safety: Trigger and State may be called from any goroutine.
// Guards and observers run on the triggering goroutine and must not
// call Trigger.
type Machine struct {
	fsm    *fsm.FSM
	logger Logger

	mu        sync.RWMutex
	guards    map[string]Guard
	observers []TransitionFunc
}

// New creates a machine in the given initial state.
func New(initial string) (*Machine, error) {
	if !slices.Contains(States(), initial) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, initial)
	}

	m := &Machine{
		logger: noopLogger{},
		guards: make(map[string]Guard),
	}
	m.fsm = fsm.NewFSM(initial, events(), fsm.Callbacks{
		"before_event": wrapEvent(m.guard),
		"enter_state":  m.entered,
	})
	return m, nil
}

// wrapEvent turns an error-returning callback into an fsm callback that
// cancels the event on error.
func wrapEvent(fn func(ctx context.Context, e *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, e *fsm.Event) {
		if err := fn(ctx, e); err != nil {
			e.Cancel(err)
		}
	}
}

// SetLogger sets the logger.
func (m *Machine) SetLogger(logger Logger) {
	m.logger = logger
}

// SetGuard installs a guard for event, replacing any previous one.
func (m *Machine) SetGuard(event string, g Guard) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guards[event] = g
}

// OnTransition registers an observer for completed transitions.
func (m *Machine) OnTransition(fn TransitionFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// State returns the current state.
func (m *Machine) State() string {
	return m.fsm.Current()
}

// Can reports whether event may fire from the current state.
func (m *Machine) Can(event string) bool {
	return m.fsm.Can(event)
}

// Trigger fires event. Events that are not valid from the current state
// or are vetoed by a guard return ErrTransitionRejected.
func (m *Machine) Trigger(ctx context.Context, event string) error {
	from := m.fsm.Current()

	err := m.fsm.Event(ctx, event)
	if err == nil {
		return nil
	}

	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return nil
	}

	m.logger.Warn("transition rejected", "event", event, "state", from, "error", err)
	return fmt.Errorf("%w: %s from %s: %w", ErrTransitionRejected, event, from, err)
}

func (m *Machine) guard(ctx context.Context, e *fsm.Event) error {
	m.mu.RLock()
	g := m.guards[e.Event]
	m.mu.RUnlock()

	if g == nil {
		return nil
	}
	return g(ctx, e.Src, e.Dst)
}

func (m *Machine) entered(_ context.Context, e *fsm.Event) {
	m.logger.Info("state changed", "event", e.Event, "from", e.Src, "to", e.Dst)

	m.mu.RLock()
	observers := slices.Clone(m.observers)
	m.mu.RUnlock()

	for _, fn := range observers {
		fn(e.Event, e.Src, e.Dst)
	}
}
