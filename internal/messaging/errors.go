package messaging

import "errors"

var (
	// ErrEncode is returned when a message cannot be rendered as JSON.
	ErrEncode = errors.New("messaging: encode failed")

	// ErrDecode is returned for payloads that are not JSON objects.
	ErrDecode = errors.New("messaging: decode failed")

	// ErrClosed is returned when sending on a closed publisher.
	ErrClosed = errors.New("messaging: publisher closed")

	// ErrNotStarted is returned when sending before the topology started.
	ErrNotStarted = errors.New("messaging: not started")

	// ErrAlreadyStarted is returned when a topology or listener is started twice.
	ErrAlreadyStarted = errors.New("messaging: already started")
)
