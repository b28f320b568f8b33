// Package statemachine holds the unit's observing state machine.
//
// The transition table follows the nightly cycle of a unit:
//
//	sleeping -> ready -> scheduling -> slewing -> pointing -> tracking
//	         -> observing -> analyzing -> scheduling ...
//	any running state -> parking -> parked -> housekeeping -> sleeping
//
// The supervisor only ever drives the park and set_park events itself;
// the rest of the table belongs to the observing run.
package statemachine
