package queue

import (
	"context"
	"time"

	"github.com/panoptes/pocs-core/internal/command"
)

// Queue is an unbounded FIFO of commands with many producers and a
// single consumer. Put never waits for the consumer.
type Queue interface {
	// Put appends c to the tail.
	Put(ctx context.Context, c command.Command) error

	// TryGet removes the head without waiting. ok is false when empty.
	TryGet(ctx context.Context) (c command.Command, ok bool, err error)

	// Get removes the head, waiting up to timeout for one to arrive.
	Get(ctx context.Context, timeout time.Duration) (c command.Command, ok bool, err error)

	// Len returns the number of queued commands.
	Len(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}

// Queue categories.
const (
	NameCommand  = "command"
	NameSchedule = "schedule"
)
