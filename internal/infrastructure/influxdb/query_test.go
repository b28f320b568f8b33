package influxdb

import (
	"strings"
	"testing"
	"time"
)

func TestLastValueQuery(t *testing.T) {
	q := lastValueQuery("telemetry", "weather", "safe", 24*time.Hour)

	for _, want := range []string{
		`from(bucket: "telemetry")`,
		`range(start: -86400s)`,
		`r._measurement == "weather" and r._field == "safe"`,
		`last()`,
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %q:\n%s", want, q)
		}
	}
}

func TestFluxDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{time.Hour, "3600s"},
		{90 * time.Second, "90s"},
		{0, "1s"},
		{time.Millisecond, "1s"},
	}

	for _, tt := range tests {
		if got := fluxDuration(tt.in); got != tt.want {
			t.Errorf("fluxDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
