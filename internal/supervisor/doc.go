// Package supervisor is the top-level control object of a unit.
//
// A Supervisor composes the safety monitor, the messaging topology, the
// command dispatcher and the power sequencer around a state machine and
// an observatory. The state machine calls back into it for safety
// checks and power-down; the control loop in Run calls it between
// states.
//
// All methods except Flags are meant to be called from the control
// loop goroutine. Commands from operators reach the loop only through
// the command queue and are applied by CheckMessages.
package supervisor
