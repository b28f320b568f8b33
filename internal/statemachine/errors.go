package statemachine

import "errors"

var (
	// ErrUnknownState is returned for a state name outside the table.
	ErrUnknownState = errors.New("statemachine: unknown state")

	// ErrTransitionRejected is returned when an event cannot fire from
	// the current state or a guard cancels it.
	ErrTransitionRejected = errors.New("statemachine: transition rejected")
)
