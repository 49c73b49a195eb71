package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisStateStore struct {
	client *redis.Client
}

func NewRedisStateStore(client *redis.Client) StateStore {
	return &redisStateStore{client: client}
}

func (s *redisStateStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, 1, ttl).Result()
}

func (s *redisStateStore) Remaining(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// -2 means missing, -1 means no expiry; neither is a timed claim.
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *redisStateStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
