package queue

import (
	"context"
	"fmt"

	"github.com/panoptes/pocs-core/internal/infrastructure/config"
)

// Open creates the named queue on the configured backend.
func Open(ctx context.Context, cfg config.QueueConfig, name string) (Queue, error) {
	switch cfg.Backend {
	case config.QueueBackendMemory, "":
		return NewMemory(), nil
	case config.QueueBackendRedis:
		return OpenRedis(ctx, cfg.Redis, name)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
