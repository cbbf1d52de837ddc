package buildstats

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisStore keeps the snapshot as a JSON string under one key.
// Works with any Redis-compatible backend (Redis, Dragonfly, Valkey, KeyDB).
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to a Redis-compatible backend.
// url should be in the format: redis://[password@]host:port[/db]
func NewRedisStore(ctx context.Context, url, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Debug().Str("addr", opts.Addr).Str("key", key).Msg("Connected to Redis-compatible backend for build stats")

	return NewRedisStoreFromClient(client, key), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

// Read implements Store
func (s *RedisStore) Read(ctx context.Context) (*Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Location())
		}
		return nil, fmt.Errorf("failed to read build stats from redis: %w", err)
	}
	return Decode(data)
}

// Write implements Store
func (s *RedisStore) Write(ctx context.Context, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write build stats to redis: %w", err)
	}
	return nil
}

// Delete implements Store
func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to delete build stats from redis: %w", err)
	}
	return nil
}

// Location implements Store
func (s *RedisStore) Location() string {
	return "redis://" + s.client.Options().Addr + "/" + s.key
}

// Close implements Store
func (s *RedisStore) Close() error {
	return s.client.Close()
}
