package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores records in a Redis instance reachable from the device.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis constructs a Redis-backed store. A zero ttl keeps records indefinitely.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if ttl < 0 {
		ttl = 0
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	if err := r.ready(key); err != nil {
		return nil, err
	}
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.ready(key); err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, value, r.ttl).Err()
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.ready(key); err != nil {
		return err
	}
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Ping implements Store.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.client == nil {
		return errors.New("storage: redis client not configured")
	}
	return r.client.Ping(ctx).Err()
}

func (r *Redis) ready(key string) error {
	if r == nil || r.client == nil {
		return errors.New("storage: redis client not configured")
	}
	if !validKey(key) {
		return ErrInvalidKey
	}
	return nil
}
