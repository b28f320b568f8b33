package safety

import "time"

// PointWriter is the part of the InfluxDB client used to log verdicts.
type PointWriter interface {
	WriteSafety(unit string, checks map[string]bool, safe bool, at time.Time)
}

// InfluxRecorder writes every verdict as a point.
type InfluxRecorder struct {
	writer PointWriter
	unit   string
}

// NewInfluxRecorder creates a recorder tagging points with unit.
func NewInfluxRecorder(w PointWriter, unit string) *InfluxRecorder {
	return &InfluxRecorder{writer: w, unit: unit}
}

// RecordSafety writes status.
func (r *InfluxRecorder) RecordSafety(status Status, at time.Time) {
	r.writer.WriteSafety(r.unit, status.Checks(), status.Safe(), at)
}
