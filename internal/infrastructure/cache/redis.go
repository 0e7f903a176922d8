package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/hszk-dev/vidbrief/internal/domain/repository"
	"github.com/redis/go-redis/v9"
)

const (
	// recordKeyPrefix is the prefix for cache record keys in Redis.
	recordKeyPrefix = "vidbrief:record:"
)

// Compile-time verification that RedisRecordStore implements RecordStore.
var _ repository.RecordStore = (*RedisRecordStore)(nil)

// RedisRecordStore implements RecordStore using Redis as the backing store.
// Records never expire; staleness is decided by the fingerprint cache.
type RedisRecordStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisRecordStore creates a new Redis-backed record store.
func NewRedisRecordStore(client redis.Cmdable) *RedisRecordStore {
	return &RedisRecordStore{
		client: client,
		prefix: recordKeyPrefix,
	}
}

// Get retrieves a record payload from Redis.
func (s *RedisRecordStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := repository.ValidateKey(key); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.buildKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrRecordNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	return data, nil
}

// Put stores a record payload without TTL.
func (s *RedisRecordStore) Put(ctx context.Context, key string, payload []byte) error {
	if err := repository.ValidateKey(key); err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.buildKey(key), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a record from Redis.
func (s *RedisRecordStore) Delete(ctx context.Context, key string) error {
	if err := repository.ValidateKey(key); err != nil {
		return err
	}

	if err := s.client.Del(ctx, s.buildKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

func (s *RedisRecordStore) buildKey(key string) string {
	return s.prefix + key
}
