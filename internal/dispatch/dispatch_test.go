package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/panoptes/pocs-core/internal/command"
	"github.com/panoptes/pocs-core/internal/queue"
)

func cmd(kind string) command.Command {
	return command.New(kind, []byte(`{"message":"`+kind+`"}`), time.Now())
}

func fill(t *testing.T, kinds ...string) *queue.Memory {
	t.Helper()
	q := queue.NewMemory()
	for _, k := range kinds {
		if err := q.Put(context.Background(), cmd(k)); err != nil {
			t.Fatal(err)
		}
	}
	return q
}

type calls struct {
	park, shutdown int
}

func (c *calls) table() Table {
	return Table{
		Park:     func(context.Context, command.Command) error { c.park++; return nil },
		Shutdown: func(context.Context, command.Command) error { c.shutdown++; return nil },
	}
}

func queued(t *testing.T, q queue.Queue) int {
	t.Helper()
	n, err := q.Len(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestDrain_Empty(t *testing.T) {
	c := &calls{}
	handled, err := Drain(context.Background(), queue.NewMemory(), c.table())
	if handled || err != nil {
		t.Errorf("Drain() = (%v, %v), want (false, nil)", handled, err)
	}
}

func TestDrain_UnknownThenPark(t *testing.T) {
	c := &calls{}
	q := fill(t, "dance", "park")

	handled, err := Drain(context.Background(), q, c.table())
	if !handled || err != nil {
		t.Fatalf("Drain() = (%v, %v), want (true, nil)", handled, err)
	}
	if c.park != 1 {
		t.Errorf("park handled %d times, want 1", c.park)
	}
	if n := queued(t, q); n != 0 {
		t.Errorf("queue length = %d, want 0", n)
	}
}

func TestDrain_KindsMatchExactly(t *testing.T) {
	c := &calls{}
	q := fill(t, "PARK", " Shutdown ", "Park")

	handled, err := Drain(context.Background(), q, c.table())
	if handled || err != nil {
		t.Fatalf("Drain() = (%v, %v), want (false, nil)", handled, err)
	}
	if c.park != 0 || c.shutdown != 0 {
		t.Errorf("park=%d shutdown=%d, want 0 and 0", c.park, c.shutdown)
	}
	if n := queued(t, q); n != 0 {
		t.Errorf("queue length = %d, want 0", n)
	}
}

func TestDrain_StopsAfterFirstSuccess(t *testing.T) {
	c := &calls{}
	q := fill(t, "park", "shutdown")

	if handled, _ := Drain(context.Background(), q, c.table()); !handled {
		t.Fatal("first Drain() handled nothing")
	}
	if c.park != 1 || c.shutdown != 0 {
		t.Errorf("after first Drain park=%d shutdown=%d, want 1 and 0", c.park, c.shutdown)
	}
	if n := queued(t, q); n != 1 {
		t.Fatalf("queue length = %d, want 1", n)
	}

	if handled, _ := Drain(context.Background(), q, c.table()); !handled {
		t.Fatal("second Drain() handled nothing")
	}
	if c.shutdown != 1 {
		t.Errorf("shutdown handled %d times, want 1", c.shutdown)
	}
}

func TestDrain_HandlerErrorContinues(t *testing.T) {
	shutdowns := 0
	table := Table{
		Park:     func(context.Context, command.Command) error { return errors.New("mount jammed") },
		Shutdown: func(context.Context, command.Command) error { shutdowns++; return nil },
	}
	q := fill(t, "park", "shutdown", "park")

	handled, err := Drain(context.Background(), q, table)
	if !handled || err != nil {
		t.Fatalf("Drain() = (%v, %v), want (true, nil)", handled, err)
	}
	if shutdowns != 1 {
		t.Errorf("shutdown handled %d times, want 1", shutdowns)
	}
	if n := queued(t, q); n != 1 {
		t.Errorf("queue length = %d, want 1", n)
	}
}

func TestDrain_HandlerPanicContinues(t *testing.T) {
	table := Table{
		Park: func(context.Context, command.Command) error { panic("boom") },
	}
	q := fill(t, "park", "park")

	obs := &recordingObserver{}
	d := New()
	d.AddObserver(obs)

	handled, err := d.Drain(context.Background(), q, table)
	if handled || err != nil {
		t.Fatalf("Drain() = (%v, %v), want (false, nil)", handled, err)
	}
	if len(obs.outcomes) != 2 {
		t.Fatalf("observed %d commands, want 2", len(obs.outcomes))
	}
	for i, o := range obs.outcomes {
		if o != OutcomeFailed {
			t.Errorf("outcome %d = %q, want %q", i, o, OutcomeFailed)
		}
		if !errors.Is(obs.errs[i], ErrHandlerPanic) {
			t.Errorf("error %d = %v, want %v", i, obs.errs[i], ErrHandlerPanic)
		}
	}
}

func TestDrain_EmptyTableIgnoresEverything(t *testing.T) {
	q := fill(t, "park", "shutdown", "dance")

	obs := &recordingObserver{}
	d := New()
	d.AddObserver(obs)

	handled, err := d.Drain(context.Background(), q, Table{})
	if handled || err != nil {
		t.Fatalf("Drain() = (%v, %v), want (false, nil)", handled, err)
	}
	if n := queued(t, q); n != 0 {
		t.Errorf("queue length = %d, want 0", n)
	}
	want := []Outcome{OutcomeIgnored, OutcomeIgnored, OutcomeIgnored}
	for i := range want {
		if obs.outcomes[i] != want[i] {
			t.Errorf("outcome %d = %q, want %q", i, obs.outcomes[i], want[i])
		}
	}
}

func TestDrain_QueueError(t *testing.T) {
	boom := errors.New("backend down")
	_, err := Drain(context.Background(), failingQueue{err: boom}, Table{})
	if !errors.Is(err, boom) {
		t.Errorf("Drain() error = %v, want %v", err, boom)
	}
}

func TestDrain_SkipsCorruptItem(t *testing.T) {
	c := &calls{}
	q := &corruptOnce{Queue: fill(t, "park")}

	handled, err := Drain(context.Background(), q, c.table())
	if !handled || err != nil {
		t.Fatalf("Drain() = (%v, %v), want (true, nil)", handled, err)
	}
	if c.park != 1 {
		t.Errorf("park handled %d times, want 1", c.park)
	}
	if n := queued(t, q); n != 0 {
		t.Errorf("queue length = %d, want 0", n)
	}
}

func TestDrain_BackendUnavailable(t *testing.T) {
	_, err := Drain(context.Background(), failingQueue{err: queue.ErrBackendUnavailable}, Table{})
	if !errors.Is(err, queue.ErrBackendUnavailable) {
		t.Errorf("Drain() error = %v, want %v", err, queue.ErrBackendUnavailable)
	}
}

type recordingObserver struct {
	outcomes []Outcome
	errs     []error
}

func (r *recordingObserver) Dispatched(_ context.Context, _ command.Command, o Outcome, err error) {
	r.outcomes = append(r.outcomes, o)
	r.errs = append(r.errs, err)
}

type failingQueue struct {
	queue.Queue
	err error
}

func (f failingQueue) TryGet(context.Context) (command.Command, bool, error) {
	return command.Command{}, false, f.err
}

// corruptOnce fails its first TryGet with ErrCorrupt, as the Redis backend
// does for an undecodable entry it has already popped.
type corruptOnce struct {
	queue.Queue
	done bool
}

func (q *corruptOnce) TryGet(ctx context.Context) (command.Command, bool, error) {
	if !q.done {
		q.done = true
		return command.Command{}, false, fmt.Errorf("%w: bad json", queue.ErrCorrupt)
	}
	return q.Queue.TryGet(ctx)
}
