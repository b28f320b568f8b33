package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/panoptes/pocs-core/internal/units"
)

// Config is the root configuration structure for a PANOPTES unit.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Unit      UnitConfig      `yaml:"unit"`
	Simulator []string        `yaml:"simulator"`
	Control   ControlConfig   `yaml:"control"`
	Safety    SafetyConfig    `yaml:"safety"`
	Messaging MessagingConfig `yaml:"messaging"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Relay     RelayConfig     `yaml:"relay"`
	Queue     QueueConfig     `yaml:"queue"`
	Weather   WeatherConfig   `yaml:"weather"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// UnitConfig identifies the unit and its working volume.
type UnitConfig struct {
	// Name is the display name used in logs and announcements.
	Name string `yaml:"name"`

	// Directory is the unit's working directory. Free-space checks
	// are made against the volume holding it.
	Directory string `yaml:"directory"`
}

// ControlConfig contains control-loop timing.
type ControlConfig struct {
	// SleepDelay is the default control-loop delay in seconds.
	SleepDelay float64 `yaml:"sleep_delay"`

	// SafeDelay is the wait between safety re-evaluations in seconds.
	SafeDelay float64 `yaml:"safe_delay"`

	// InitialState is the state the engine starts in.
	InitialState string `yaml:"initial_state"`
}

// SafetyConfig contains safety-check thresholds.
type SafetyConfig struct {
	// WeatherStale is the maximum age of a weather record in seconds.
	WeatherStale int `yaml:"weather_stale"`

	// RequiredFreeSpace is the minimum free space on the working volume,
	// as a human-readable quantity (e.g. "0.25 GB").
	RequiredFreeSpace string `yaml:"required_free_space"`
}

// MessagingConfig contains the relay topology settings.
type MessagingConfig struct {
	// Enabled starts the relays, publisher and command listener.
	Enabled bool `yaml:"enabled"`

	// Host is where the relays listen.
	Host string `yaml:"host"`

	// CmdPort is the command relay's front port; its back port is CmdPort+1.
	CmdPort int `yaml:"cmd_port"`

	// MsgPort is the telemetry relay's front port; its back port is MsgPort+1.
	MsgPort int `yaml:"msg_port"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// RelayConfig contains settings for the relay subprocesses.
type RelayConfig struct {
	// Binary is the path to the broker executable used as a relay.
	// Default: "/usr/sbin/mosquitto"
	Binary string `yaml:"binary"`

	// ConfigDir is where generated relay configuration files are written.
	ConfigDir string `yaml:"config_dir"`

	// GracefulTimeout is how long to wait after SIGTERM before SIGKILL, in seconds.
	GracefulTimeout int `yaml:"graceful_timeout"`
}

// QueueConfig selects the command queue backend.
type QueueConfig struct {
	// Backend is "memory" or "redis".
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig contains Redis connection settings for the queue backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// WeatherConfig selects where weather records are read from.
type WeatherConfig struct {
	// Store is "influxdb" or "sqlite".
	Store string `yaml:"store"`

	// Measurement is the InfluxDB measurement holding weather readings.
	Measurement string `yaml:"measurement"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP status server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Known simulator names.
const (
	SimulatorAll     = "all"
	SimulatorNight   = "night"
	SimulatorWeather = "weather"
	SimulatorMount   = "mount"
	SimulatorCamera  = "camera"
)

// Queue backends.
const (
	QueueBackendMemory = "memory"
	QueueBackendRedis  = "redis"
)

// Weather stores.
const (
	WeatherStoreInfluxDB = "influxdb"
	WeatherStoreSQLite   = "sqlite"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: POCS_SECTION_KEY
// For example: POCS_DATABASE_PATH, POCS_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Unit: UnitConfig{
			Name:      "Generic PANOPTES Unit",
			Directory: "/var/panoptes/POCS",
		},
		Simulator: []string{},
		Control: ControlConfig{
			SleepDelay:   2.5,
			SafeDelay:    300,
			InitialState: "sleeping",
		},
		Safety: SafetyConfig{
			WeatherStale:      180,
			RequiredFreeSpace: "0.25 GB",
		},
		Messaging: MessagingConfig{
			Enabled: true,
			Host:    "localhost",
			CmdPort: 6500,
			MsgPort: 6510,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				ClientID: "pocs",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Relay: RelayConfig{
			Binary:          "/usr/sbin/mosquitto",
			ConfigDir:       "/tmp/pocs-relays",
			GracefulTimeout: 5,
		},
		Queue: QueueConfig{
			Backend: QueueBackendMemory,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "pocs:queue:",
			},
		},
		Weather: WeatherConfig{
			Store:       WeatherStoreSQLite,
			Measurement: "weather",
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Org:           "panoptes",
			Bucket:        "telemetry",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Database: DatabaseConfig{
			Path:        "./data/pocs.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8765,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POCS"); v != "" {
		cfg.Unit.Directory = v
	}
	if v := os.Getenv("POCS_UNIT_NAME"); v != "" {
		cfg.Unit.Name = v
	}
	if v := os.Getenv("POCS_SIMULATOR"); v != "" {
		cfg.Simulator = splitList(v)
	}
	if v := os.Getenv("POCS_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("POCS_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("POCS_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("POCS_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("POCS_REDIS_PASSWORD"); v != "" {
		cfg.Queue.Redis.Password = v
	}
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Unit.Directory == "" {
		errs = append(errs, "unit.directory is required (or set POCS)")
	}

	if c.Control.SleepDelay < 0 {
		errs = append(errs, "control.sleep_delay must not be negative")
	}
	if c.Control.SafeDelay <= 0 {
		errs = append(errs, "control.safe_delay must be positive")
	}

	if c.Safety.WeatherStale <= 0 {
		errs = append(errs, "safety.weather_stale must be positive")
	}
	if _, err := units.ParseBytes(c.Safety.RequiredFreeSpace); err != nil {
		errs = append(errs, fmt.Sprintf("safety.required_free_space: %v", err))
	}

	if c.Messaging.Enabled {
		if !validPortPair(c.Messaging.CmdPort) {
			errs = append(errs, "messaging.cmd_port must be between 1 and 65534")
		}
		if !validPortPair(c.Messaging.MsgPort) {
			errs = append(errs, "messaging.msg_port must be between 1 and 65534")
		}
		if portPairsOverlap(c.Messaging.CmdPort, c.Messaging.MsgPort) {
			errs = append(errs, "messaging.cmd_port and messaging.msg_port port pairs overlap")
		}
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if !slices.Contains([]string{QueueBackendMemory, QueueBackendRedis}, c.Queue.Backend) {
		errs = append(errs, fmt.Sprintf("queue.backend %q is not one of memory, redis", c.Queue.Backend))
	}

	switch c.Weather.Store {
	case WeatherStoreSQLite:
	case WeatherStoreInfluxDB:
		if !c.InfluxDB.Enabled {
			errs = append(errs, "weather.store is influxdb but influxdb.enabled is false")
		}
	default:
		errs = append(errs, fmt.Sprintf("weather.store %q is not one of influxdb, sqlite", c.Weather.Store))
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validPortPair reports whether both port and port+1 are usable.
func validPortPair(port int) bool {
	return port >= 1 && port < 65535
}

// portPairsOverlap reports whether (a, a+1) and (b, b+1) share a port.
func portPairsOverlap(a, b int) bool {
	return a == b || a+1 == b || b+1 == a
}

// HasSimulator reports whether the named simulator is enabled.
// The "all" simulator enables every simulator.
func (c *Config) HasSimulator(name string) bool {
	return slices.Contains(c.Simulator, name) || slices.Contains(c.Simulator, SimulatorAll)
}

// GetSleepDelay returns the control-loop delay as a Duration.
func (c *Config) GetSleepDelay() time.Duration {
	return secondsToDuration(c.Control.SleepDelay)
}

// GetSafeDelay returns the safety retry delay as a Duration.
func (c *Config) GetSafeDelay() time.Duration {
	return secondsToDuration(c.Control.SafeDelay)
}

// GetWeatherStale returns the weather staleness threshold as a Duration.
func (c *Config) GetWeatherStale() time.Duration {
	return time.Duration(c.Safety.WeatherStale) * time.Second
}

// GetRequiredFreeSpace returns the free-space threshold in bytes.
// Validate guarantees the value parses.
func (c *Config) GetRequiredFreeSpace() uint64 {
	n, _ := units.ParseBytes(c.Safety.RequiredFreeSpace) //nolint:errcheck // checked in Validate
	return n
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// secondsToDuration converts fractional seconds to a Duration.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
