package relay

import "errors"

var (
	// ErrInvalidConfig is returned by Validate.
	ErrInvalidConfig = errors.New("relay: invalid config")

	// ErrNotReady is returned when a relay's listeners never accepted connections.
	ErrNotReady = errors.New("relay: not ready")
)
