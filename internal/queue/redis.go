package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/panoptes/pocs-core/internal/command"
	"github.com/panoptes/pocs-core/internal/infrastructure/config"
)

// Redis is a Queue backed by a Redis list. Producers LPUSH and the
// consumer RPOPs, so the list tail is the queue head.
type Redis struct {
	client *redis.Client
	key    string
	owned  bool
}

// NewRedisClient creates a client from the queue configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedis creates a queue on an existing client. The client is shared
// and not closed by Close.
func NewRedis(client *redis.Client, keyPrefix, name string) *Redis {
	return &Redis{client: client, key: keyPrefix + name}
}

// OpenRedis connects to Redis and creates a queue that owns its client.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, name string) (*Redis, error) {
	client := NewRedisClient(cfg)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	q := NewRedis(client, cfg.KeyPrefix, name)
	q.owned = true
	return q, nil
}

// Key returns the Redis list key.
func (q *Redis) Key() string {
	return q.key
}

// Put appends c.
func (q *Redis) Put(ctx context.Context, c command.Command) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return nil
}

// TryGet removes the head without waiting.
func (q *Redis) TryGet(ctx context.Context) (command.Command, bool, error) {
	data, err := q.client.RPop(ctx, q.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return command.Command{}, false, nil
	}
	if err != nil {
		return command.Command{}, false, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return decode(data)
}

// Get removes the head, waiting up to timeout with BRPOP.
// The wait has one second resolution; shorter timeouts wait one second.
func (q *Redis) Get(ctx context.Context, timeout time.Duration) (command.Command, bool, error) {
	if timeout < time.Second {
		timeout = time.Second
	}
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return command.Command{}, false, nil
	}
	if err != nil {
		return command.Command{}, false, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	// BRPOP replies [key, value].
	return decode([]byte(res[1]))
}

func decode(data []byte) (command.Command, bool, error) {
	var c command.Command
	if err := json.Unmarshal(data, &c); err != nil {
		return command.Command{}, false, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return c, true, nil
}

// Len returns the list length.
func (q *Redis) Len(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return int(n), nil
}

// Close closes the client if this queue opened it.
func (q *Redis) Close() error {
	if !q.owned {
		return nil
	}
	return q.client.Close()
}
