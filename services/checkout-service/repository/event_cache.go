package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessedEventCache remembers provider event ids that were fully handled.
// It only short-circuits replays; the orders unique key stays authoritative.
type ProcessedEventCache interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

type RedisEventCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisEventCache(client redis.Cmdable, ttl time.Duration) *RedisEventCache {
	return &RedisEventCache{client: client, ttl: ttl}
}

func eventKey(eventID string) string {
	return fmt.Sprintf("checkout:event:%s", eventID)
}

func (c *RedisEventCache) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := c.client.Exists(ctx, eventKey(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisEventCache) MarkProcessed(ctx context.Context, eventID string) error {
	return c.client.Set(ctx, eventKey(eventID), time.Now().UTC().Format(time.RFC3339), c.ttl).Err()
}
