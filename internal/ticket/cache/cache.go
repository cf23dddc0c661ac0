// Package cache provides the read-through cache for the violation-type fee
// schedule. Schedule rows change rarely and every registration screen reads
// them, so a short TTL is enough to keep the database off the hot path.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	platformredis "citation/internal/platform/redis"
	"citation/internal/ticket/models"
)

const scheduleKey = "citation:violation-types"

// Redis caches the schedule as a JSON blob. Cache errors degrade to a miss;
// the caller falls back to the store.
type Redis struct {
	client *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedis(client *platformredis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, logger: logger}
}

func (c *Redis) Get(ctx context.Context) ([]models.ViolationType, bool) {
	raw, err := c.client.Get(ctx, scheduleKey).Bytes()
	if err != nil {
		return nil, false
	}
	var types []models.ViolationType
	if err := json.Unmarshal(raw, &types); err != nil {
		c.logger.WarnContext(ctx, "discarding corrupt schedule cache entry", "error", err.Error())
		return nil, false
	}
	return types, true
}

func (c *Redis) Set(ctx context.Context, types []models.ViolationType) {
	raw, err := json.Marshal(types)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, scheduleKey, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "failed to cache violation types", "error", err.Error())
	}
}

// Memory is a TTL cache for runs without redis.
type Memory struct {
	mu      sync.RWMutex
	types   []models.ViolationType
	expires time.Time
	ttl     time.Duration
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl}
}

func (c *Memory) Get(_ context.Context) ([]models.ViolationType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.types == nil || time.Now().After(c.expires) {
		return nil, false
	}
	out := make([]models.ViolationType, len(c.types))
	copy(out, c.types)
	return out, true
}

func (c *Memory) Set(_ context.Context, types []models.ViolationType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = make([]models.ViolationType, len(types))
	copy(c.types, types)
	c.expires = time.Now().Add(c.ttl)
}
