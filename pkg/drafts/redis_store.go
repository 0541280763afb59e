package drafts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "prdkit:drafts"

// RedisStore keeps drafts in one redis hash of filename -> body.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to addr; an empty key uses "prdkit:drafts".
func NewRedisStore(addr, password, key string) *RedisStore {
	key = strings.TrimSpace(key)
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		key: key,
	}
}

// Put stores body under name.
func (s *RedisStore) Put(ctx context.Context, name string, body []byte) error {
	if err := s.client.HSet(ctx, s.key, name, body).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

// Get loads a draft body.
func (s *RedisStore) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.HGet(ctx, s.key, name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis hget: %w", err)
	}
	return data, nil
}

// List returns every stored filename.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	names, err := s.client.HKeys(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hkeys: %w", err)
	}
	return names, nil
}

// Delete removes a draft.
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	n, err := s.client.HDel(ctx, s.key, name).Result()
	if err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether name is stored.
func (s *RedisStore) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := s.client.HExists(ctx, s.key, name).Result()
	if err != nil {
		return false, fmt.Errorf("redis hexists: %w", err)
	}
	return ok, nil
}

// Close releases the redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
