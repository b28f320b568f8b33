// Package observatory defines the hardware collaborators the supervisor
// drives, and a simulated unit for running without hardware.
package observatory

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by mount operations on a disconnected mount.
var ErrNotConnected = errors.New("observatory: mount not connected")

// Mount is the telescope mount.
type Mount interface {
	// Initialize connects and homes the mount.
	Initialize(ctx context.Context) error

	// Connected reports whether the mount is reachable.
	Connected() bool

	// Parked reports whether the mount is in its park position.
	Parked() bool

	// Park slews to the park position and waits until it is reached.
	Park(ctx context.Context) error
}

// Observatory is the unit's hardware as a whole.
type Observatory interface {
	// Mount returns the unit's mount.
	Mount() Mount

	// IsDark reports whether the sun is far enough below the horizon
	// to observe.
	IsDark(ctx context.Context) (bool, error)

	// Status returns a snapshot suitable for the STATUS channel.
	Status(ctx context.Context) (map[string]any, error)

	// PowerDown releases cameras, scheduler and other hardware.
	PowerDown(ctx context.Context) error
}
