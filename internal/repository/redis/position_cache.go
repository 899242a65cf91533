package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crewplanner/internal/domain"

	"github.com/redis/go-redis/v9"
)

const positionCatalogKey = "crewplanner:positions:all"

// PositionCache is a read-through cache over a PositionRepository. The whole
// catalog is cached under one key; every write through the cache deletes it.
// Redis failures fall back to the backing repository.
type PositionCache struct {
	next   domain.PositionRepository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewPositionCache(next domain.PositionRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *PositionCache {
	return &PositionCache{next: next, client: client, ttl: ttl, logger: logger}
}

var _ domain.PositionRepository = (*PositionCache)(nil)

func (c *PositionCache) FindAll(ctx context.Context) ([]*domain.Position, error) {
	raw, err := c.client.Get(ctx, positionCatalogKey).Bytes()
	switch {
	case err == nil:
		var positions []*domain.Position
		if err := json.Unmarshal(raw, &positions); err == nil {
			return positions, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable position cache entry")
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "position cache read failed", "error", err)
	}

	positions, err := c.next.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(positions); err == nil {
		if err := c.client.Set(ctx, positionCatalogKey, encoded, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "position cache write failed", "error", err)
		}
	}
	return positions, nil
}

func (c *PositionCache) FindByKey(ctx context.Context, key domain.PositionKey) (*domain.Position, error) {
	positions, err := c.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range positions {
		if p.Key == key {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: position %s", domain.ErrNotFound, key)
}

func (c *PositionCache) Create(ctx context.Context, p *domain.Position) error {
	if err := c.next.Create(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *PositionCache) Update(ctx context.Context, p *domain.Position) error {
	if err := c.next.Update(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *PositionCache) DeleteByKey(ctx context.Context, key domain.PositionKey) error {
	if err := c.next.DeleteByKey(ctx, key); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// invalidate drops the cached catalog. The write already succeeded, so a
// failure here is only logged; the TTL bounds the staleness.
func (c *PositionCache) invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, positionCatalogKey).Err(); err != nil {
		c.logger.WarnContext(ctx, "position cache invalidation failed", "error", err)
	}
}

// NewClient parses url and pings the server. An empty url returns nil so the
// cache can be left out.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
