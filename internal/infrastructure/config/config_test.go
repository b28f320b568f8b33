package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "pocs.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
unit:
  name: "PAN001"
  directory: "/tmp/pocs"
simulator: ["night", "weather"]
control:
  sleep_delay: 1.5
  safe_delay: 60
messaging:
  enabled: true
  cmd_port: 7000
  msg_port: 7010
database:
  path: "/tmp/test.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Unit.Name != "PAN001" {
		t.Errorf("Unit.Name = %q, want %q", cfg.Unit.Name, "PAN001")
	}
	if cfg.Messaging.CmdPort != 7000 {
		t.Errorf("Messaging.CmdPort = %d, want 7000", cfg.Messaging.CmdPort)
	}
	if got := cfg.GetSleepDelay(); got != 1500*time.Millisecond {
		t.Errorf("GetSleepDelay() = %v, want 1.5s", got)
	}
	if got := cfg.GetSafeDelay(); got != time.Minute {
		t.Errorf("GetSafeDelay() = %v, want 1m", got)
	}
	if !cfg.HasSimulator(SimulatorNight) {
		t.Error("HasSimulator(night) = false, want true")
	}
	if cfg.HasSimulator(SimulatorMount) {
		t.Error("HasSimulator(mount) = true, want false")
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, "unit:\n  name: \"PAN002\"\n")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.GetSleepDelay(); got != 2500*time.Millisecond {
		t.Errorf("GetSleepDelay() = %v, want 2.5s", got)
	}
	if got := cfg.GetSafeDelay(); got != 5*time.Minute {
		t.Errorf("GetSafeDelay() = %v, want 5m", got)
	}
	if got := cfg.GetWeatherStale(); got != 180*time.Second {
		t.Errorf("GetWeatherStale() = %v, want 180s", got)
	}
	if got := cfg.GetRequiredFreeSpace(); got != 250_000_000 {
		t.Errorf("GetRequiredFreeSpace() = %d, want 250000000", got)
	}
	if cfg.Queue.Backend != QueueBackendMemory {
		t.Errorf("Queue.Backend = %q, want %q", cfg.Queue.Backend, QueueBackendMemory)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/pocs.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	configPath := writeConfig(t, "unit:\n  name: \"PAN003\"\n")

	t.Setenv("POCS", "/data/pocs")
	t.Setenv("POCS_SIMULATOR", "night, weather,,")
	t.Setenv("POCS_MQTT_PASSWORD", "secret")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Unit.Directory != "/data/pocs" {
		t.Errorf("Unit.Directory = %q, want %q", cfg.Unit.Directory, "/data/pocs")
	}
	if len(cfg.Simulator) != 2 || cfg.Simulator[1] != "weather" {
		t.Errorf("Simulator = %v, want [night weather]", cfg.Simulator)
	}
	if cfg.MQTT.Auth.Password != "secret" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "secret")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "overlapping port pairs",
			mutate:  func(c *Config) { c.Messaging.MsgPort = c.Messaging.CmdPort + 1 },
			wantErr: "overlap",
		},
		{
			name:    "port pair out of range",
			mutate:  func(c *Config) { c.Messaging.CmdPort = 65535 },
			wantErr: "messaging.cmd_port",
		},
		{
			name: "ports ignored when messaging disabled",
			mutate: func(c *Config) {
				c.Messaging.Enabled = false
				c.Messaging.CmdPort = 0
			},
		},
		{
			name:    "bad free space quantity",
			mutate:  func(c *Config) { c.Safety.RequiredFreeSpace = "plenty" },
			wantErr: "safety.required_free_space",
		},
		{
			name:    "unknown queue backend",
			mutate:  func(c *Config) { c.Queue.Backend = "kafka" },
			wantErr: "queue.backend",
		},
		{
			name:    "influx weather store needs influx",
			mutate:  func(c *Config) { c.Weather.Store = WeatherStoreInfluxDB },
			wantErr: "influxdb.enabled",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "zero safe delay",
			mutate:  func(c *Config) { c.Control.SafeDelay = 0 },
			wantErr: "control.safe_delay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestHasSimulator_All(t *testing.T) {
	cfg := Default()
	cfg.Simulator = []string{SimulatorAll}

	for _, name := range []string{SimulatorNight, SimulatorWeather, SimulatorMount, SimulatorCamera} {
		if !cfg.HasSimulator(name) {
			t.Errorf("HasSimulator(%q) = false with all, want true", name)
		}
	}
}
