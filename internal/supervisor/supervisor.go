package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/panoptes/pocs-core/internal/dispatch"
	"github.com/panoptes/pocs-core/internal/messaging"
	"github.com/panoptes/pocs-core/internal/observatory"
	"github.com/panoptes/pocs-core/internal/queue"
	"github.com/panoptes/pocs-core/internal/safety"
)

// Defaults.
const (
	DefaultSleepDelay = 2500 * time.Millisecond
	DefaultSafeDelay  = 300 * time.Second

	// sleepSlice is the longest stretch Sleep waits without checking messages.
	sleepSlice = 10 * time.Second

	// statusMinSleep is the shortest sleep preceded by a status broadcast.
	statusMinSleep = 2 * time.Second
)

// StateMachine is the state machine engine as seen by the supervisor.
type StateMachine interface {
	State() string
	Trigger(ctx context.Context, event string) error
}

// SafetyEvaluator evaluates, caches and enforces unit safety.
type SafetyEvaluator interface {
	Evaluate(ctx context.Context) (safety.Status, error)
}

// Messaging is the messaging topology as seen by the supervisor.
type Messaging interface {
	Start(ctx context.Context) error
	Units() []messaging.Unit
	Send(channel string, msg any) error
	ClosePublisher() error
}

// Logger defines the logging interface for the supervisor.
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

// RunFlags is the run state of a Supervisor. Once PowerDown completes
// the flags never change again.
type RunFlags struct {
	Connected   bool `json:"connected"`
	Initialized bool `json:"initialized"`
	Interrupted bool `json:"interrupted"`
	KeepRunning bool `json:"keep_running"`
	DoStates    bool `json:"do_states"`
	DoCmdCheck  bool `json:"do_cmd_check"`
}

// Deps are the collaborators of a Supervisor.
type Deps struct {
	// Name is the unit's display name.
	Name string

	// SleepDelay is the default Sleep duration. Default: 2.5s
	SleepDelay time.Duration

	// SafeDelay is the WaitUntilSafe retry interval. Default: 300s
	SafeDelay time.Duration

	Machine     StateMachine
	Observatory observatory.Observatory
	Safety      SafetyEvaluator

	// Messaging is nil when messaging is disabled. CommandQueue and
	// ScheduleQueue are required when it is set.
	Messaging     Messaging
	CommandQueue  queue.Queue
	ScheduleQueue queue.Queue

	// Dispatcher defaults to a fresh dispatch.Dispatcher.
	Dispatcher *dispatch.Dispatcher

	// Clock defaults to the real clock.
	Clock clock.Clock

	Logger Logger
}

// Supervisor is the top-level control object of a unit.
type Supervisor struct {
	name        string
	sleepDelay  time.Duration
	safeDelay   time.Duration
	machine     StateMachine
	observatory observatory.Observatory
	safety      SafetyEvaluator
	messaging   Messaging
	commands    queue.Queue
	schedule    queue.Queue
	dispatcher  *dispatch.Dispatcher
	clock       clock.Clock
	logger      Logger

	mu    sync.RWMutex
	flags RunFlags

	messagingStarted bool
}

// New creates a Supervisor. The unit starts connected and running, but
// neither initialized nor listening for commands.
func New(d Deps) (*Supervisor, error) {
	if d.Machine == nil || d.Observatory == nil || d.Safety == nil {
		return nil, fmt.Errorf("%w: state machine, observatory and safety evaluator are required", ErrMissingDependency)
	}
	if d.Messaging != nil && (d.CommandQueue == nil || d.ScheduleQueue == nil) {
		return nil, fmt.Errorf("%w: messaging requires command and schedule queues", ErrMissingDependency)
	}

	s := &Supervisor{
		name:        d.Name,
		sleepDelay:  d.SleepDelay,
		safeDelay:   d.SafeDelay,
		machine:     d.Machine,
		observatory: d.Observatory,
		safety:      d.Safety,
		messaging:   d.Messaging,
		commands:    d.CommandQueue,
		schedule:    d.ScheduleQueue,
		dispatcher:  d.Dispatcher,
		clock:       d.Clock,
		logger:      d.Logger,
		flags: RunFlags{
			Connected:   true,
			KeepRunning: true,
			DoStates:    true,
		},
	}
	if s.sleepDelay <= 0 {
		s.sleepDelay = DefaultSleepDelay
	}
	if s.safeDelay <= 0 {
		s.safeDelay = DefaultSafeDelay
	}
	if s.dispatcher == nil {
		s.dispatcher = dispatch.New()
	}
	if s.clock == nil {
		s.clock = clock.RealClock{}
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}
	return s, nil
}

// Name returns the unit's display name.
func (s *Supervisor) Name() string {
	return s.name
}

// Flags returns a snapshot of the run flags. Safe for concurrent use.
func (s *Supervisor) Flags() RunFlags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags
}

func (s *Supervisor) updateFlags(fn func(f *RunFlags)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.flags)
}

// State returns the current state of the state machine.
func (s *Supervisor) State() string {
	return s.machine.State()
}

// StartMessaging starts the messaging topology. It does nothing when
// messaging is disabled or already started; the topology is never
// restarted.
//
// Cancelling ctx does not stop the units. They live until PowerDown
// terminates them, so the power-down announcement still reaches the
// relays after a shutdown signal.
func (s *Supervisor) StartMessaging(ctx context.Context) error {
	if s.messaging == nil || s.messagingStarted {
		return nil
	}
	s.messagingStarted = true

	if err := s.messaging.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("starting messaging: %w", err)
	}
	s.updateFlags(func(f *RunFlags) { f.DoCmdCheck = true })
	return nil
}

// Units returns the supervised messaging units.
func (s *Supervisor) Units() []messaging.Unit {
	if s.messaging == nil {
		return nil
	}
	return s.messaging.Units()
}

// SendMessage publishes msg on channel. It does nothing when messaging
// is disabled.
func (s *Supervisor) SendMessage(channel string, msg any) error {
	if s.messaging == nil {
		return nil
	}
	if err := s.messaging.Send(channel, msg); err != nil {
		s.logger.Debug("message not sent", "channel", channel, "error", err)
		return err
	}
	return nil
}

// Say announces msg to humans on the PANCHAT channel.
func (s *Supervisor) Say(msg string) {
	s.logger.Info("unit says", "unit", s.name, "message", msg)
	s.SendMessage(messaging.ChannelPanChat, msg) //nolint:errcheck // logged in SendMessage
}

// Status collects the current state and the observatory status and
// broadcasts them on the STATUS channel. Collection failures are logged
// and the partial status is still sent.
func (s *Supervisor) Status(ctx context.Context) map[string]any {
	status := map[string]any{
		"state": s.machine.State(),
	}

	obs, err := s.observatory.Status(ctx)
	if err != nil {
		s.logger.Warn("collecting observatory status", "error", err)
	} else {
		status["observatory"] = obs
	}

	if err := s.SendMessage(messaging.ChannelStatus, status); err != nil {
		s.logger.Warn("broadcasting status", "error", err)
	}
	return status
}

// IsSafe evaluates safety, parking the unit if it is unsafe and running,
// and returns the verdict.
func (s *Supervisor) IsSafe(ctx context.Context) bool {
	status, err := s.safety.Evaluate(ctx)
	if err != nil {
		s.logger.Warn("safety evaluation incomplete", "error", err)
	}
	return status.Safe()
}
