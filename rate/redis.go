package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements the fixed window on Redis counters so multiple
// gateway instances share one budget per key: INCR per request, EXPIRE set
// only on the window's first hit.
type RedisLimiter struct {
	redis  redis.UniversalClient
	prefix string
	cfg    Config
}

// NewRedisLimiter creates a Redis-backed fixed-window limiter.
func NewRedisLimiter(client redis.UniversalClient, prefix string, cfg Config) *RedisLimiter {
	if prefix == "" {
		prefix = "sg:rl"
	}
	return &RedisLimiter{
		redis:  client,
		prefix: prefix,
		cfg:    cfg,
	}
}

func (l *RedisLimiter) key(k string) string {
	return l.prefix + ":" + k
}

// Allow consumes one slot of key's current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := l.key(key)

	count, err := l.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Fixed-window semantics: the TTL is set once, by the first hit.
	if count == 1 {
		if err := l.redis.Expire(ctx, redisKey, l.cfg.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	ttl, err := l.redis.PTTL(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if ttl < 0 {
		ttl = l.cfg.Window
	}

	res := Result{
		Limit:   l.cfg.MaxRequests,
		ResetAt: time.Now().Add(ttl),
	}

	if count > int64(l.cfg.MaxRequests) {
		res.Allowed = false
		res.Remaining = 0
		res.RetryAfter = ttl
		return res, nil
	}

	res.Allowed = true
	res.Remaining = l.cfg.MaxRequests - int(count)
	return res, nil
}
