// Package api implements the HTTP status server of a unit.
//
// This package provides:
//   - GET /api/v1/health: reachability of the database, InfluxDB and the
//     messaging units
//   - GET /api/v1/status: state machine state, run flags, the last safety
//     evaluation, messaging units and recent operator commands
//   - GET /api/v1/commands: the paginated command log
//   - GET /metrics: Prometheus exposition
//
// The server is read-only. Commands reach the unit on the POCS-CMD
// channel, never over HTTP.
package api
