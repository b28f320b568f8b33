// Package weather reads weather verdicts written by the unit's weather
// station service.
//
// The supervisor never writes weather itself. A Store only answers two
// questions: can the store be reached, and what is the most recent
// record. Deciding whether that record is stale is left to the caller.
package weather
