package relay

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Config describes one relay: a local broker with a front listener for
// publishers and a back listener, one port higher, for subscribers.
type Config struct {
	// Name identifies the relay in logs and the unit table (e.g. "cmd").
	Name string

	// Host is the address both listeners bind to.
	Host string

	// FrontPort is the publisher-facing port. The back port is FrontPort+1.
	FrontPort int

	// Binary is the broker executable.
	Binary string

	// ConfigDir is where the generated broker configuration is written.
	ConfigDir string

	// GracefulTimeout is passed to the process manager.
	GracefulTimeout time.Duration
}

// BackPort returns the subscriber-facing port.
func (c Config) BackPort() int {
	return c.FrontPort + 1
}

// FrontAddr returns host:port of the publisher listener.
func (c Config) FrontAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.FrontPort)
}

// BackAddr returns host:port of the subscriber listener.
func (c Config) BackAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.BackPort())
}

// ConfigPath returns where the broker configuration file is written.
func (c Config) ConfigPath() string {
	return filepath.Join(c.ConfigDir, fmt.Sprintf("relay-%s.conf", c.Name))
}

// Validate checks the relay configuration.
func (c Config) Validate() error {
	var errs []string

	if c.Name == "" {
		errs = append(errs, "name is required")
	}
	if c.Host == "" {
		errs = append(errs, "host is required")
	}
	if c.FrontPort < 1 || c.FrontPort > 65534 {
		errs = append(errs, fmt.Sprintf("front port %d leaves no room for a back port", c.FrontPort))
	}
	if c.Binary == "" {
		errs = append(errs, "binary is required")
	} else if !filepath.IsAbs(c.Binary) {
		errs = append(errs, fmt.Sprintf("binary %q must be an absolute path", c.Binary))
	}
	if c.ConfigDir == "" {
		errs = append(errs, "config dir is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// BuildConfigFile renders the broker configuration.
//
// Persistence is off: a relay only forwards live traffic and anything
// in flight when it stops is lost.
func (c Config) BuildConfigFile() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# relay %s\n", c.Name)
	b.WriteString("persistence false\n")
	b.WriteString("log_dest stdout\n")
	b.WriteString("log_type error\n")
	b.WriteString("log_type warning\n")
	b.WriteString("log_type notice\n")
	b.WriteString("per_listener_settings false\n")
	b.WriteString("allow_anonymous true\n")
	fmt.Fprintf(&b, "\nlistener %d %s\n", c.FrontPort, c.Host)
	fmt.Fprintf(&b, "\nlistener %d %s\n", c.BackPort(), c.Host)

	return b.String()
}

// BuildArgs returns the broker command line.
func (c Config) BuildArgs() []string {
	return []string{"-c", c.ConfigPath()}
}
