package influxdb

import (
	"context"
	"fmt"
	"time"
)

// LastValue returns the most recent value of a field within the lookback window.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - measurement: Measurement name (e.g. "weather")
//   - field: Field name (e.g. "safe")
//   - lookback: How far back to search
//
// Returns:
//   - any: The raw field value as decoded by the client
//   - time.Time: The point's timestamp
//   - error: ErrNoData if nothing was written in the window, ErrQueryFailed on failure
func (c *Client) LastValue(ctx context.Context, measurement, field string, lookback time.Duration) (any, time.Time, error) {
	if !c.IsConnected() {
		return nil, time.Time{}, ErrNotConnected
	}

	result, err := c.queryAPI.Query(ctx, lastValueQuery(c.cfg.Bucket, measurement, field, lookback))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer result.Close()

	var (
		value any
		ts    time.Time
		found bool
	)
	for result.Next() {
		record := result.Record()
		value = record.Value()
		ts = record.Time()
		found = true
	}
	if result.Err() != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %w", ErrQueryFailed, result.Err())
	}
	if !found {
		return nil, time.Time{}, ErrNoData
	}

	return value, ts, nil
}

// lastValueQuery builds the Flux query used by LastValue.
func lastValueQuery(bucket, measurement, field string, lookback time.Duration) string {
	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: -%s)
  |> filter(fn: (r) => r._measurement == %q and r._field == %q)
  |> group()
  |> last()`, bucket, fluxDuration(lookback), measurement, field)
}

// fluxDuration renders d as a Flux duration literal in whole seconds.
func fluxDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("%ds", secs)
}
