package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Redis stores values as plain Redis strings under a common key prefix.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a Store backed by client. prefix is prepended to every key.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Connect opens a Redis client for addr. It returns nil when addr is empty.
func Connect(addr, password string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

// GetString returns the string at key.
func (r *Redis) GetString(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

// SetString stores value at key without expiry.
func (r *Redis) SetString(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// GetDouble returns the number at key.
func (r *Redis) GetDouble(ctx context.Context, key string) (float64, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, true, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

// SetDouble stores value at key without expiry.
func (r *Redis) SetDouble(ctx context.Context, key string, value float64) error {
	return r.SetString(ctx, key, strconv.FormatFloat(value, 'g', -1, 64))
}
