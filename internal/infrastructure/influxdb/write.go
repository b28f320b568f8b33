package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementSafety holds one point per safety evaluation.
const MeasurementSafety = "safety"

// WriteSafety records the outcome of a safety evaluation.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - unit: Unit name, stored as a tag
//   - checks: Individual check results keyed by check name (e.g. "is_dark")
//   - safe: The combined verdict
//   - at: Evaluation time
func (c *Client) WriteSafety(unit string, checks map[string]bool, safe bool, at time.Time) {
	if !c.IsConnected() {
		return
	}

	fields := make(map[string]interface{}, len(checks)+1)
	for name, ok := range checks {
		fields[name] = ok
	}
	fields["safe"] = safe

	c.writeAPI.WritePoint(write.NewPoint(MeasurementSafety, map[string]string{"unit": unit}, fields, at))
}

// WritePoint writes a point with full control over tags and fields.
//
// Example:
//
//	client.WritePoint("weather",
//	    map[string]string{"source": "aag"},
//	    map[string]interface{}{"safe": true})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a point with a specific timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
