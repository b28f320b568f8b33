package process

import "errors"

var (
	// ErrAlreadyStarted is returned when Start is called twice on a Manager.
	ErrAlreadyStarted = errors.New("process: already started")

	// ErrStartFailed is returned when the binary could not be executed.
	ErrStartFailed = errors.New("process: start failed")

	// ErrExited is recorded when a process exits cleanly without being asked to.
	ErrExited = errors.New("process: exited unexpectedly")
)
