package gencache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// SharedCache is an optional Redis layer in front of the database store so
// multiple instances share generation results without hitting Postgres.
type SharedCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSharedCache(addr string, ttl time.Duration) (*SharedCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", addr)

	return &SharedCache{client: client, ttl: ttl}, nil
}

func (s *SharedCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, redisKey(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, true, nil
}

func (s *SharedCache) Set(ctx context.Context, key, response string) error {
	if err := s.client.Set(ctx, redisKey(key), response, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (s *SharedCache) Close() error {
	return s.client.Close()
}

func redisKey(key string) string {
	return "gen:" + key
}
