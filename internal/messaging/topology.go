package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panoptes/pocs-core/internal/infrastructure/config"
	"github.com/panoptes/pocs-core/internal/infrastructure/mqtt"
	"github.com/panoptes/pocs-core/internal/queue"
	"github.com/panoptes/pocs-core/internal/relay"
)

// Relay names.
const (
	RelayCommand   = "cmd"
	RelayTelemetry = "msg"
)

// ConnectionRecorder is told when a relay client connects or drops.
type ConnectionRecorder interface {
	SetClientConnected(client string, connected bool)
}

// Dialer connects an MQTT client. It is replaced in tests.
type Dialer func(cfg config.MQTTConfig) (*mqtt.Client, error)

// Topology is the messaging process topology of one unit: a command
// relay, a telemetry relay, the publisher on the telemetry relay and
// the command listener on the command relay.
//
// A Topology is started once and never restarted.
type Topology struct {
	cfg      *config.Config
	commands queue.Queue
	logger   Logger
	dial     Dialer
	recorder CommandRecorder
	conns    ConnectionRecorder
	listen   ListenerConfig

	mu        sync.Mutex
	started   bool
	units     []Unit
	publisher *Publisher
	listener  *Listener
}

// NewTopology creates a topology that will feed commands into q.
func NewTopology(cfg *config.Config, q queue.Queue) *Topology {
	return &Topology{
		cfg:      cfg,
		commands: q,
		logger:   noopLogger{},
		dial:     mqtt.Connect,
	}
}

// SetLogger sets the logger for the topology and every unit it starts.
func (t *Topology) SetLogger(logger Logger) { t.logger = logger }

// SetRecorder sets the observer passed to the command listener.
func (t *Topology) SetRecorder(r CommandRecorder) { t.recorder = r }

// SetConnectionRecorder sets the observer of relay client connections.
func (t *Topology) SetConnectionRecorder(r ConnectionRecorder) { t.conns = r }

// SetListenerConfig overrides the command listener timings.
func (t *Topology) SetListenerConfig(cfg ListenerConfig) { t.listen = cfg }

// Start launches both relays, connects the publisher to the front of the
// telemetry relay and starts the listener on the back of the command
// relay. On failure everything already started is terminated.
func (t *Topology) Start(ctx context.Context) (err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return ErrAlreadyStarted
	}
	t.started = true

	defer func() {
		if err != nil {
			t.terminateLocked()
		}
	}()

	m := t.cfg.Messaging

	cmdRelay, err := t.startRelay(ctx, RelayCommand, m.CmdPort)
	if err != nil {
		return err
	}
	msgRelay, err := t.startRelay(ctx, RelayTelemetry, m.MsgPort)
	if err != nil {
		return err
	}

	pubClient, err := t.connect("pub", msgRelay.Config().FrontPort)
	if err != nil {
		return fmt.Errorf("connecting publisher: %w", err)
	}
	t.publisher = NewPublisher(pubClient)

	subClient, err := t.connect("cmd", cmdRelay.Config().BackPort())
	if err != nil {
		return fmt.Errorf("connecting command listener: %w", err)
	}
	listener := NewListener(subClient, t.commands, t.listen)
	listener.SetLogger(t.logger)
	if t.recorder != nil {
		listener.SetRecorder(t.recorder)
	}
	if err := listener.Start(ctx); err != nil {
		subClient.Close() //nolint:errcheck // already failing
		return err
	}
	t.listener = listener
	t.units = append(t.units, listener)

	t.logger.Info("messaging topology started",
		"cmd_port", m.CmdPort,
		"msg_port", m.MsgPort,
		"units", len(t.units),
	)
	return nil
}

func (t *Topology) startRelay(ctx context.Context, name string, port int) (*relay.Relay, error) {
	r, err := relay.New(relay.Config{
		Name:            name,
		Host:            t.cfg.Messaging.Host,
		FrontPort:       port,
		Binary:          t.cfg.Relay.Binary,
		ConfigDir:       t.cfg.Relay.ConfigDir,
		GracefulTimeout: time.Duration(t.cfg.Relay.GracefulTimeout) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	r.SetLogger(t.logger)

	if err := r.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting %s relay: %w", name, err)
	}
	t.units = append(t.units, r)
	return r, nil
}

func (t *Topology) connect(role string, port int) (*mqtt.Client, error) {
	cfg := t.cfg.MQTT
	cfg.Broker.Host = t.cfg.Messaging.Host
	cfg.Broker.Port = port
	cfg.Broker.TLS = false
	cfg.Broker.ClientID = fmt.Sprintf("%s-%s", t.cfg.MQTT.Broker.ClientID, role)

	client, err := t.dial(cfg)
	if err != nil {
		return nil, err
	}
	client.SetLogger(t.logger)
	t.trackConnection(role, client)
	return client, nil
}

// trackConnection reports the connection state of client to the
// connection recorder, now and on every later connect or drop.
func (t *Topology) trackConnection(role string, client *mqtt.Client) {
	rec := t.conns
	if rec == nil {
		return
	}
	client.SetOnConnect(func() { rec.SetClientConnected(role, true) })
	client.SetOnDisconnect(func(error) { rec.SetClientConnected(role, false) })
	rec.SetClientConnected(role, client.IsConnected())
}

// Units returns every supervised unit, relays first.
func (t *Topology) Units() []Unit {
	t.mu.Lock()
	defer t.mu.Unlock()

	units := make([]Unit, len(t.units))
	copy(units, t.units)
	return units
}

// Publisher returns the telemetry publisher, or nil before Start.
func (t *Topology) Publisher() *Publisher {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.publisher
}

// Send publishes msg on channel through the telemetry publisher.
func (t *Topology) Send(channel string, msg any) error {
	p := t.Publisher()
	if p == nil {
		return ErrNotStarted
	}
	return p.Send(channel, msg)
}

// ClosePublisher closes the telemetry publisher. Units are left running.
func (t *Topology) ClosePublisher() error {
	p := t.Publisher()
	if p == nil {
		return nil
	}
	return p.Close()
}

// Close closes the publisher and terminates every unit still alive.
func (t *Topology) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.terminateLocked()
}

func (t *Topology) terminateLocked() error {
	var errs []error

	if t.publisher != nil {
		if err := t.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing publisher: %w", err))
		}
	}

	// Listener first, then relays in reverse start order.
	for i := len(t.units) - 1; i >= 0; i-- {
		u := t.units[i]
		if !u.Alive() {
			continue
		}
		if err := u.Terminate(); err != nil {
			errs = append(errs, fmt.Errorf("terminating %s: %w", u.Name(), err))
		}
	}

	return errors.Join(errs...)
}
