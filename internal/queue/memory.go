package queue

import (
	"context"
	"sync"
	"time"

	"github.com/panoptes/pocs-core/internal/command"
)

// Memory is an in-process Queue guarded by a mutex.
type Memory struct {
	mu     sync.Mutex
	items  []command.Command
	notify chan struct{}
}

// NewMemory creates an empty in-memory queue.
func NewMemory() *Memory {
	return &Memory{notify: make(chan struct{}, 1)}
}

// Put appends c. It never blocks.
func (q *Memory) Put(_ context.Context, c command.Command) error {
	q.mu.Lock()
	q.items = append(q.items, c)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// TryGet removes the head without waiting.
func (q *Memory) TryGet(_ context.Context) (command.Command, bool, error) {
	c, ok := q.pop()
	return c, ok, nil
}

func (q *Memory) pop() (command.Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return command.Command{}, false
	}
	c := q.items[0]
	q.items[0] = command.Command{}
	q.items = q.items[1:]
	return c, true
}

// Get removes the head, waiting up to timeout.
func (q *Memory) Get(ctx context.Context, timeout time.Duration) (command.Command, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if c, ok := q.pop(); ok {
			return c, true, nil
		}
		select {
		case <-q.notify:
		case <-timer.C:
			c, ok := q.pop()
			return c, ok, nil
		case <-ctx.Done():
			return command.Command{}, false, ctx.Err()
		}
	}
}

// Len returns the number of queued commands.
func (q *Memory) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), nil
}

// Close is a no-op.
func (q *Memory) Close() error {
	return nil
}
