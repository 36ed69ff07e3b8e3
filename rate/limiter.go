package rate

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps backend failures of the Redis limiter. The in-memory
// limiter never returns it.
var ErrUnavailable = errors.New("rate limiter backend unavailable")

// Config holds the fixed-window parameters.
type Config struct {
	// MaxRequests is the number of requests allowed per window, inclusive.
	MaxRequests int
	// Window is the fixed window length.
	Window time.Duration
}

// Result is the outcome of one [Limiter.Allow] call. Remaining and ResetAt
// are reported for allowed and rejected calls alike so middleware can always
// annotate the response.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter is the budget-check contract shared by [FixedWindow] and
// [RedisLimiter].
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
