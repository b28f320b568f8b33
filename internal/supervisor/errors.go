package supervisor

import "errors"

var (
	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("supervisor: missing dependency")

	// ErrInitializeFailed is returned by Run when the hardware did not initialize.
	ErrInitializeFailed = errors.New("supervisor: initialization failed")
)
