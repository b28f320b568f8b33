package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/panoptes/pocs-core/internal/command"
	"github.com/panoptes/pocs-core/internal/infrastructure/config"
)

// openTestRedis connects to a local Redis on a unique key, or skips.
func openTestRedis(t *testing.T) *Redis {
	t.Helper()
	cfg := config.RedisConfig{Addr: "localhost:6379", KeyPrefix: "pocs:test:" + uuid.NewString() + ":"}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	q, err := OpenRedis(ctx, cfg, NameCommand)
	if err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}
	t.Cleanup(func() {
		q.client.Del(context.Background(), q.Key())
		q.Close() //nolint:errcheck // test cleanup
	})
	return q
}

func TestRedis_FIFO(t *testing.T) {
	q := openTestRedis(t)
	ctx := context.Background()

	first := command.New("park", []byte(`{"message":"park"}`), time.Now().UTC())
	second := command.New("shutdown", []byte(`{"message":"shutdown"}`), time.Now().UTC())

	for _, c := range []command.Command{first, second} {
		if err := q.Put(ctx, c); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	if n, err := q.Len(ctx); err != nil || n != 2 {
		t.Errorf("Len() = (%d, %v), want 2", n, err)
	}

	got, ok, err := q.TryGet(ctx)
	if err != nil || !ok {
		t.Fatalf("TryGet() = (%v, %v)", ok, err)
	}
	if got.ID != first.ID || got.Kind != command.KindPark {
		t.Errorf("TryGet() = %v, want %v", got, first)
	}

	got, ok, err = q.Get(ctx, time.Second)
	if err != nil || !ok {
		t.Fatalf("Get() = (%v, %v)", ok, err)
	}
	if got.ID != second.ID {
		t.Errorf("Get() = %v, want %v", got, second)
	}

	if _, ok, err := q.TryGet(ctx); ok || err != nil {
		t.Errorf("TryGet() on empty = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestRedis_GetTimeout(t *testing.T) {
	q := openTestRedis(t)

	_, ok, err := q.Get(context.Background(), 10*time.Millisecond)
	if err != nil || ok {
		t.Errorf("Get() on empty = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestRedis_Corrupt(t *testing.T) {
	q := openTestRedis(t)
	ctx := context.Background()

	q.client.LPush(ctx, q.Key(), "not json")

	if _, _, err := q.TryGet(ctx); !errors.Is(err, ErrCorrupt) {
		t.Errorf("TryGet() error = %v, want ErrCorrupt", err)
	}
}

func TestOpen(t *testing.T) {
	q, err := Open(context.Background(), config.QueueConfig{Backend: config.QueueBackendMemory}, NameCommand)
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	if _, ok := q.(*Memory); !ok {
		t.Errorf("Open(memory) = %T, want *Memory", q)
	}

	if _, err := Open(context.Background(), config.QueueConfig{Backend: "kafka"}, NameCommand); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Open(kafka) error = %v, want ErrUnknownBackend", err)
	}
}

func TestOpenRedis_Unavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := OpenRedis(ctx, config.RedisConfig{Addr: "127.0.0.1:1"}, NameCommand)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("OpenRedis() error = %v, want ErrBackendUnavailable", err)
	}
}
