package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
)

// SnapshotStore keeps the priced lines of an open checkout session.
type SnapshotStore interface {
	Save(ctx context.Context, snap *models.CheckoutSnapshot) error
	Get(ctx context.Context, sessionID string) (*models.CheckoutSnapshot, error)
	Delete(ctx context.Context, sessionID string) error
}

type RedisSnapshotStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisSnapshotStore(client redis.Cmdable, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, ttl: ttl}
}

func snapshotKey(sessionID string) string {
	return fmt.Sprintf("checkout:session:%s", sessionID)
}

func (s *RedisSnapshotStore) Save(ctx context.Context, snap *models.CheckoutSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey(snap.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Get returns ErrNotFound once the snapshot has expired or was consumed.
func (s *RedisSnapshotStore) Get(ctx context.Context, sessionID string) (*models.CheckoutSnapshot, error) {
	data, err := s.client.Get(ctx, snapshotKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap models.CheckoutSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (s *RedisSnapshotStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, snapshotKey(sessionID)).Err()
}
