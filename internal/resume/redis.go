package resume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/store"
)

const keyPrefix = "eta:resume:"

type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

type RedisOption func(*RedisStore)

func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) { s.now = now }
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Save writes the snapshot with a TTL running to ExpiresAt plus Grace.
func (s *RedisStore) Save(ctx context.Context, snap *models.ResumeSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode resume snapshot: %w", err)
	}
	ttl := snap.ExpiresAt.Add(Grace).Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("resume snapshot already past grace: %w", store.ErrExpired)
	}
	if err := s.client.Set(ctx, keyPrefix+snap.Token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store resume snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*models.ResumeSnapshot, error) {
	payload, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("resume token: %w", store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read resume snapshot: %w", err)
	}
	var snap models.ResumeSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode resume snapshot: %w", err)
	}
	return &snap, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete resume snapshot: %w", err)
	}
	return nil
}
