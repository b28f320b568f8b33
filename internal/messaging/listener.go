package messaging

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"

	"github.com/panoptes/pocs-core/internal/command"
	"github.com/panoptes/pocs-core/internal/infrastructure/mqtt"
	"github.com/panoptes/pocs-core/internal/queue"
)

// Listener defaults.
const (
	DefaultPollTimeout = 500 * time.Millisecond
	DefaultCycleDelay  = time.Second
	DefaultInboxSize   = 256
)

// Subscriber is the receiving side of a broker connection.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Close() error
}

// CommandRecorder observes commands as they are enqueued.
type CommandRecorder interface {
	Received(ctx context.Context, c command.Command)
}

// ListenerConfig tunes the listener loop.
type ListenerConfig struct {
	// Channel is the channel to listen on. Default: ChannelCommand.
	Channel string

	// PollTimeout bounds each wait for an inbound message.
	PollTimeout time.Duration

	// CycleDelay is the pause after every poll.
	CycleDelay time.Duration

	// InboxSize bounds messages received but not yet polled.
	InboxSize int
}

func (c *ListenerConfig) applyDefaults() {
	if c.Channel == "" {
		c.Channel = ChannelCommand
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = DefaultPollTimeout
	}
	if c.CycleDelay <= 0 {
		c.CycleDelay = DefaultCycleDelay
	}
	if c.InboxSize <= 0 {
		c.InboxSize = DefaultInboxSize
	}
}

type inbound struct {
	payload []byte
	at      time.Time
}

// Listener is the command listener unit. It subscribes to the command
// channel on the back port of the command relay and turns each message
// into a queued command.
//
// The loop polls for up to PollTimeout, enqueues what arrived, then
// pauses for CycleDelay. Cancellation is observed at the top of each
// cycle only, so Terminate can take up to one full cycle.
type Listener struct {
	sub      Subscriber
	queue    queue.Queue
	cfg      ListenerConfig
	clock    clock.Clock
	logger   Logger
	recorder CommandRecorder

	inbox chan inbound

	started atomic.Bool
	alive   atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	stop    sync.Once
}

// NewListener creates a listener feeding q from sub.
func NewListener(sub Subscriber, q queue.Queue, cfg ListenerConfig) *Listener {
	cfg.applyDefaults()
	return &Listener{
		sub:    sub,
		queue:  q,
		cfg:    cfg,
		clock:  clock.RealClock{},
		logger: noopLogger{},
		inbox:  make(chan inbound, cfg.InboxSize),
		done:   make(chan struct{}),
	}
}

// SetLogger sets the logger.
func (l *Listener) SetLogger(logger Logger) { l.logger = logger }

// SetClock replaces the clock driving the loop.
func (l *Listener) SetClock(c clock.Clock) { l.clock = c }

// SetRecorder sets an observer notified of every enqueued command.
func (l *Listener) SetRecorder(r CommandRecorder) { l.recorder = r }

// Start subscribes and spawns the listener loop. The loop runs until
// Terminate is called or ctx is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	topic := mqtt.Topics{}.Channel(l.cfg.Channel)
	if err := l.sub.Subscribe(topic, 1, l.receive); err != nil {
		close(l.done)
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.alive.Store(true)

	go l.run(loopCtx)

	l.logger.Info("command listener started", "channel", l.cfg.Channel)
	return nil
}

// receive runs on the transport's delivery goroutine and must not block.
func (l *Listener) receive(_ string, payload []byte) error {
	select {
	case l.inbox <- inbound{payload: append([]byte(nil), payload...), at: l.clock.Now()}:
		return nil
	default:
		return fmt.Errorf("command inbox full, dropping message")
	}
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.done)
	defer func() {
		l.alive.Store(false)
		if err := l.sub.Close(); err != nil {
			l.logger.Warn("closing command subscriber", "error", err)
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		select {
		case m := <-l.inbox:
			l.enqueue(ctx, m)
			l.drainInbox(ctx)
		case <-l.clock.After(l.cfg.PollTimeout):
		}

		l.clock.Sleep(l.cfg.CycleDelay)
	}
}

func (l *Listener) drainInbox(ctx context.Context) {
	for {
		select {
		case m := <-l.inbox:
			l.enqueue(ctx, m)
		default:
			return
		}
	}
}

func (l *Listener) enqueue(ctx context.Context, m inbound) {
	obj, err := Decode(m.payload)
	if err != nil {
		l.logger.Warn("discarding undecodable command", "error", err)
		return
	}
	text, _ := MessageText(obj)

	c := command.New(text, m.payload, m.at)
	// Enqueue even after cancellation so a message already taken off
	// the wire is not lost.
	if err := l.queue.Put(context.WithoutCancel(ctx), c); err != nil {
		l.logger.Error("enqueueing command", "command", c.String(), "error", err)
		return
	}
	l.logger.Debug("command queued", "command", c.String())

	if l.recorder != nil {
		l.recorder.Received(ctx, c)
	}
}

// Name returns the unit name.
func (l *Listener) Name() string {
	return "cmd-listener"
}

// PID returns the supervisor's process ID; the listener runs in-process.
func (l *Listener) PID() int {
	return os.Getpid()
}

// Alive reports whether the loop is running.
func (l *Listener) Alive() bool {
	return l.alive.Load()
}

// Terminate cancels the loop and waits for it to exit. The subscriber
// is closed as the loop exits.
func (l *Listener) Terminate() error {
	l.stop.Do(func() {
		if l.cancel != nil {
			l.cancel()
			<-l.done
		}
	})
	return nil
}

// Done is closed when the loop has exited.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}
