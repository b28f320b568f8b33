package dispatch

import "errors"

// ErrHandlerPanic wraps a panic recovered from a command handler.
var ErrHandlerPanic = errors.New("dispatch: handler panicked")
