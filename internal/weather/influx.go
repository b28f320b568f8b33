package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panoptes/pocs-core/internal/infrastructure/influxdb"
)

const (
	// FieldSafe is the field holding the weather verdict.
	FieldSafe = "safe"

	// influxLookback bounds the search for the latest record. Anything
	// older is far beyond any staleness threshold.
	influxLookback = 24 * time.Hour
)

// Querier is the part of the InfluxDB client the store needs.
type Querier interface {
	HealthCheck(ctx context.Context) error
	LastValue(ctx context.Context, measurement, field string, lookback time.Duration) (any, time.Time, error)
}

// InfluxStore reads the latest "safe" field of a measurement.
type InfluxStore struct {
	client      Querier
	measurement string
}

// NewInfluxStore creates a store over the given measurement.
func NewInfluxStore(client Querier, measurement string) *InfluxStore {
	if measurement == "" {
		measurement = "weather"
	}
	return &InfluxStore{client: client, measurement: measurement}
}

// Reachable pings InfluxDB.
func (s *InfluxStore) Reachable(ctx context.Context) error {
	if err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	return nil
}

// Latest returns the most recent verdict.
func (s *InfluxStore) Latest(ctx context.Context) (Record, error) {
	value, ts, err := s.client.LastValue(ctx, s.measurement, FieldSafe, influxLookback)
	switch {
	case errors.Is(err, influxdb.ErrNoData):
		return Record{}, ErrNoRecord
	case errors.Is(err, influxdb.ErrNotConnected):
		return Record{}, fmt.Errorf("%w: %w", ErrUnreachable, err)
	case err != nil:
		return Record{}, err
	}

	safe, err := decodeSafe(value)
	if err != nil {
		return Record{}, err
	}
	return Record{Safe: safe, Timestamp: ts}, nil
}

// decodeSafe accepts booleans and numeric 0/1 flags.
func decodeSafe(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case uint64:
		return x != 0, nil
	case float64:
		return x != 0, nil
	default:
		return false, fmt.Errorf("%w: safe field is %T", ErrDecode, v)
	}
}
