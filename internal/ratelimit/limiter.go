package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// DefaultRate allows 120 requests per minute per client.
const DefaultRate = "120-M"

// Decision is the outcome of one rate check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Allower decides whether the client identified by key may proceed.
type Allower interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Limiter is a fixed-window limiter backed by a ulule store.
type Limiter struct {
	lim *limiter.Limiter
}

// NewMemory builds an in-process limiter from a formatted rate such as "120-M".
func NewMemory(rate string) (*Limiter, error) {
	return newLimiter(memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "bezva:ratelimit",
		CleanUpInterval: time.Minute,
	}), rate)
}

// NewRedis builds a limiter shared across instances through Redis.
func NewRedis(client *redis.Client, rate string) (*Limiter, error) {
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "bezva:ratelimit"})
	if err != nil {
		return nil, fmt.Errorf("ratelimit redis store: %w", err)
	}
	return newLimiter(store, rate)
}

func newLimiter(store limiter.Store, rate string) (*Limiter, error) {
	if strings.TrimSpace(rate) == "" {
		rate = DefaultRate
	}
	parsed, err := limiter.NewRateFromFormatted(strings.TrimSpace(rate))
	if err != nil {
		return nil, fmt.Errorf("ratelimit rate %q: %w", rate, err)
	}
	return &Limiter{lim: limiter.New(store, parsed)}, nil
}

// Allow implements Allower.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := l.lim.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Limit:     int(res.Limit),
		Remaining: int(res.Remaining),
		Reset:     time.Unix(res.Reset, 0),
	}, nil
}
