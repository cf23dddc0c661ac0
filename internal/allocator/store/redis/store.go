package redis

import (
	"context"
	"fmt"

	platformredis "citation/internal/platform/redis"
)

const counterKey = "citation:ticket-counter"

// Store backs the allocator with Redis INCR, which is atomic and strictly
// increasing for the lifetime of the key. Deployments choosing this backend
// must run Redis with persistence enabled, or the counter restarts and the
// uniqueness guarantee breaks.
type Store struct {
	client *platformredis.Client
}

func New(client *platformredis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Next(ctx context.Context) (int64, error) {
	value, err := s.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("incr ticket counter: %w", err)
	}
	return value, nil
}
