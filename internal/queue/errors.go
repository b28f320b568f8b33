package queue

import "errors"

var (
	// ErrBackendUnavailable wraps transport failures from a remote backend.
	ErrBackendUnavailable = errors.New("queue: backend unavailable")

	// ErrCorrupt is returned when a stored item cannot be decoded.
	ErrCorrupt = errors.New("queue: corrupt item")

	// ErrUnknownBackend is returned by Open for an unrecognised backend name.
	ErrUnknownBackend = errors.New("queue: unknown backend")
)
