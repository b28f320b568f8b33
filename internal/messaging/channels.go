package messaging

// Channel names on the telemetry and command relays.
const (
	ChannelStatus  = "STATUS"
	ChannelPanChat = "PANCHAT"
	ChannelDefault = "POCS"
	ChannelCommand = "POCS-CMD"
)

// Unit is a supervised helper of the topology: a relay subprocess or
// the command listener.
type Unit interface {
	Name() string
	PID() int
	Alive() bool
	Terminate() error
}

// Logger defines the logging interface for messaging components.
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
