package messaging

import (
	"fmt"
	"sync"

	"k8s.io/utils/clock"

	"github.com/panoptes/pocs-core/internal/infrastructure/mqtt"
)

// Transport is the publishing side of a broker connection.
type Transport interface {
	PublishDefault(topic string, payload []byte) error
	Close() error
}

// Publisher sends envelopes to named channels on the telemetry relay.
type Publisher struct {
	transport Transport
	clock     clock.PassiveClock

	mu     sync.Mutex
	closed bool
}

// NewPublisher wraps a connected transport.
func NewPublisher(t Transport) *Publisher {
	return &Publisher{transport: t, clock: clock.RealClock{}}
}

// SetClock replaces the clock used for envelope timestamps.
func (p *Publisher) SetClock(c clock.PassiveClock) {
	p.clock = c
}

// Send publishes msg on channel. An empty channel means ChannelDefault.
func (p *Publisher) Send(channel string, msg any) error {
	if channel == "" {
		channel = ChannelDefault
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	payload, err := Encode(msg, p.clock.Now())
	if err != nil {
		return err
	}
	if err := p.transport.PublishDefault(mqtt.Topics{}.Channel(channel), payload); err != nil {
		return fmt.Errorf("sending on %s: %w", channel, err)
	}
	return nil
}

// Close closes the transport. Further sends fail with ErrClosed.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	return p.transport.Close()
}
