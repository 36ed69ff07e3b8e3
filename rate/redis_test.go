package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisLimiter(t *testing.T, cfg Config) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLimiter(client, "test:rl", cfg), mr
}

func TestRedisLimiterEnforcesBudget(t *testing.T) {
	limiter, _ := newTestRedisLimiter(t, Config{MaxRequests: 2, Window: time.Minute})
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		res, err := limiter.Allow(ctx, "ip-1")
		if err != nil {
			t.Fatalf("Allow #%d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request #%d rejected within budget", i)
		}
	}

	res, err := limiter.Allow(ctx, "ip-1")
	if err != nil {
		t.Fatalf("Allow #3: %v", err)
	}
	if res.Allowed {
		t.Fatal("request #3 allowed past budget")
	}
	if res.Remaining != 0 || res.RetryAfter <= 0 {
		t.Fatalf("rejected result = %+v", res)
	}
}

func TestRedisLimiterWindowExpires(t *testing.T) {
	limiter, mr := newTestRedisLimiter(t, Config{MaxRequests: 1, Window: time.Minute})
	ctx := context.Background()

	if res, _ := limiter.Allow(ctx, "ip-1"); !res.Allowed {
		t.Fatal("first request rejected")
	}
	if res, _ := limiter.Allow(ctx, "ip-1"); res.Allowed {
		t.Fatal("second request allowed in same window")
	}

	mr.FastForward(61 * time.Second)

	if res, _ := limiter.Allow(ctx, "ip-1"); !res.Allowed {
		t.Fatal("request rejected after window expired")
	}
}

func TestRedisLimiterUnavailableBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter := NewRedisLimiter(client, "test:rl", Config{MaxRequests: 1, Window: time.Minute})

	mr.Close()

	_, err := limiter.Allow(context.Background(), "ip-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Allow err = %v, want ErrUnavailable", err)
	}
}
