package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheKey stores the last successfully fetched remote catalog.
const DefaultCacheKey = "bezva:catalog:remote"

// Cache keeps the raw remote catalog document in Redis so restarts within the TTL
// skip the download.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	key    string
}

// NewCache constructs a cache helper. A nil client yields a cache that never hits.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl, key: DefaultCacheKey}
}

// Get returns the cached document and whether it existed.
func (c *Cache) Get(ctx context.Context) ([]byte, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set stores the document with the configured TTL.
func (c *Cache) Set(ctx context.Context, data []byte) error {
	if c == nil || c.client == nil || len(data) == 0 {
		return nil
	}
	return c.client.Set(ctx, c.key, data, c.ttl).Err()
}
