// Package cache stores generated transformations in Redis so identical
// requests do not spend another upstream call.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abdhe/animal-speech-proxy/pkg/provider"
)

const keyPrefix = "animalspeech:v1:"

// RedisCache wraps a Redis client for storing and retrieving generated text.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a new Redis-backed response cache.
func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

// Key derives the cache key for one rendered prompt on one backend model.
// The prompt is hashed so user content never appears in Redis key names.
func Key(backend, model, prompt string) string {
	h := sha256.New()
	for _, part := range []string{backend, model, prompt} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached response by key.
// Returns the response and true if found, or zero value and false if not.
func (r *RedisCache) Get(ctx context.Context, key string) (provider.Response, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return provider.Response{}, false, nil
	}
	if err != nil {
		return provider.Response{}, false, fmt.Errorf("redis_cache: get: %w", err)
	}

	var resp provider.Response
	if err := json.Unmarshal(val, &resp); err != nil {
		return provider.Response{}, false, fmt.Errorf("redis_cache: unmarshal: %w", err)
	}
	return resp, true, nil
}

// Set stores a response with the configured TTL.
func (r *RedisCache) Set(ctx context.Context, key string, resp provider.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("redis_cache: marshal: %w", err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis_cache: set: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis_cache: ping: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
