// Package influxdb provides InfluxDB connectivity for unit telemetry.
//
// It wraps the official influxdb-client-go v2 library and is used for two
// things: reading the latest weather verdict written by the weather
// station service, and recording each safety evaluation.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	v, ts, err := client.LastValue(ctx, "weather", "safe", 24*time.Hour)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write errors are delivered asynchronously via the SetOnError callback.
// Connection, query and health check errors are returned directly.
package influxdb
