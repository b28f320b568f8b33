// Package safety decides whether the unit may keep operating.
//
// Three independent checks are combined into one verdict:
//
//   - darkness, from the observatory's ephemeris
//   - weather, from the most recent weather record
//   - free space on the unit's working volume
//
// Every check fails closed: a missing, stale or undecodable weather
// record, an ephemeris error or an unreadable volume all count as
// unsafe. The "night" and "weather" simulators force their check to
// pass.
//
// Evaluate is not a pure query. Besides caching the verdict, an unsafe
// verdict parks the unit unless it is already sleeping, parked, parking,
// housekeeping or ready.
package safety
