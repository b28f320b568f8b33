package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/panoptes/pocs-core/internal/infrastructure/config"
)

// testConfig returns an MQTT configuration for a local broker at 127.0.0.1:1883.
func testConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// requireBroker skips the test when no broker listens on the test port.
func requireBroker(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", "127.0.0.1:1883", 500*time.Millisecond)
	if err != nil {
		t.Skip("MQTT broker not available at 127.0.0.1:1883")
	}
	conn.Close()
}

// =============================================================================
// Unit Tests
// =============================================================================

func TestTopics(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"channel", topics.Channel("STATUS"), "pocs/STATUS"},
		{"command channel", topics.Channel("POCS-CMD"), "pocs/POCS-CMD"},
		{"all channels", topics.AllChannels(), "pocs/+"},
		{"client status", topics.ClientStatus("pocs-publisher"), "pocs/system/status/pocs-publisher"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestChannelFromTopic(t *testing.T) {
	tests := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{"pocs/PANCHAT", "PANCHAT", true},
		{"pocs/POCS-CMD", "POCS-CMD", true},
		{"pocs/system/status/x", "", false},
		{"pocs/", "", false},
		{"other/STATUS", "", false},
	}

	for _, tt := range tests {
		got, ok := Topics{}.ChannelFromTopic(tt.topic)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ChannelFromTopic(%q) = (%q, %v), want (%q, %v)", tt.topic, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestBrokerURL(t *testing.T) {
	cfg := testConfig("x")
	if got := BrokerURL(cfg); got != "tcp://127.0.0.1:1883" {
		t.Errorf("BrokerURL() = %q, want %q", got, "tcp://127.0.0.1:1883")
	}

	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	if got := BrokerURL(cfg); got != "ssl://127.0.0.1:8883" {
		t.Errorf("BrokerURL() = %q, want %q", got, "ssl://127.0.0.1:8883")
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig("pocs-test")
	cfg.Auth.Username = "unit"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if opts.ClientID != "pocs-test" {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, "pocs-test")
	}
	if opts.Username != "unit" {
		t.Errorf("Username = %q, want %q", opts.Username, "unit")
	}
	if !opts.CleanSession {
		t.Error("CleanSession = false, want true")
	}
	if opts.ConnectRetry {
		t.Error("ConnectRetry = true, want false")
	}
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [tcp://127.0.0.1:1883]", opts.Servers)
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig("pocs-lwt"))
	configureLWT(opts, "pocs-lwt")

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false, want true")
	}
	if opts.WillTopic != "pocs/system/status/pocs-lwt" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}
	if !opts.WillRetained {
		t.Error("WillRetained = false, want true")
	}

	var p presence
	if err := json.Unmarshal(opts.WillPayload, &p); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if p.Status != "offline" || p.Reason != "unexpected_disconnect" {
		t.Errorf("will presence = %+v", p)
	}
}

func TestCloseNil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
	if err := (&Client{}).Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
}

func TestConnect_Refused(t *testing.T) {
	cfg := testConfig("pocs-test-refused")
	cfg.Broker.Port = 1 // nothing listens here

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

// =============================================================================
// Broker Tests
// =============================================================================

func TestConnect(t *testing.T) {
	requireBroker(t)

	client, err := Connect(testConfig("pocs-test-connect"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestOnDisconnect(t *testing.T) {
	c := &Client{connected: true}
	var got []error
	c.SetOnDisconnect(func(err error) { got = append(got, err) })

	lost := errors.New("broker went away")
	c.handleDisconnect(lost)

	if len(got) != 1 || !errors.Is(got[0], lost) {
		t.Fatalf("disconnect callbacks = %v, want [%v]", got, lost)
	}
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	if c.connected {
		t.Error("connected = true after connection lost")
	}
}

func TestClose_NotifiesDisconnect(t *testing.T) {
	requireBroker(t)

	client, err := Connect(testConfig("pocs-test-close-notify"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	calls := 0
	client.SetOnDisconnect(func(err error) {
		calls++
		if err != nil {
			t.Errorf("disconnect error after Close = %v, want nil", err)
		}
	})
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("disconnect callbacks = %d, want 1", calls)
	}
}

func TestPublishValidation(t *testing.T) {
	requireBroker(t)

	client, err := Connect(testConfig("pocs-test-validate"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.Publish("", nil, 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish(empty topic) error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Publish("pocs/X", nil, 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish(qos 3) error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Publish("pocs/X", make([]byte, maxPayloadSize+1), 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish(large) error = %v, want ErrPublishFailed", err)
	}
	if err := client.Subscribe("pocs/X", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrSubscribeFailed", err)
	}
}

func TestPublishAfterClose(t *testing.T) {
	requireBroker(t)

	client, err := Connect(testConfig("pocs-test-closed"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	if err := client.PublishDefault("pocs/X", []byte(`{}`)); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishDefault() error = %v, want ErrNotConnected", err)
	}
}

func TestPublishSubscribeRoundtrip(t *testing.T) {
	requireBroker(t)

	pub, err := Connect(testConfig("pocs-test-pub"))
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pub.Close()

	sub, err := Connect(testConfig("pocs-test-sub"))
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer sub.Close()

	topic := Topics{}.Channel("TEST-ROUNDTRIP")
	received := make(chan string, 1)
	err = sub.Subscribe(topic, 1, func(_ string, payload []byte) error {
		received <- string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !sub.HasSubscription(topic) {
		t.Error("HasSubscription() = false after Subscribe")
	}

	want := `{"message":"park"}`
	if err := pub.PublishDefault(topic, []byte(want)); err != nil {
		t.Fatalf("PublishDefault() error = %v", err)
	}

	select {
	case got := <-received:
		if got != want {
			t.Errorf("received payload = %q, want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for message")
	}

	if err := sub.Unsubscribe(topic); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if sub.HasSubscription(topic) {
		t.Error("HasSubscription() = true after Unsubscribe")
	}
}
