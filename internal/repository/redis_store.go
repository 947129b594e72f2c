package repository

import (
	"context"
	"errors"
	"fmt"

	"livepoll/pkg/redis"
)

// RedisStateStore persists records as plain string keys without expiry
type RedisStateStore struct {
	client *redis.Client
}

// NewRedisStateStore wraps a connected client
func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func (s *RedisStateStore) Load(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.client.KeyBuilder.KeyStateRecord(key))
	if errors.Is(err, redis.ErrNil) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisStateStore) Save(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.client.KeyBuilder.KeyStateRecord(key), value, 0); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *RedisStateStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Delete(ctx, s.client.KeyBuilder.KeyStateRecord(key)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *RedisStateStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *RedisStateStore) Close() error {
	return s.client.Close()
}
