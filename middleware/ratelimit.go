package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/shopkit/shopgate"
	"github.com/shopkit/shopgate/audit"
	"github.com/shopkit/shopgate/rate"
)

// RateLimitOptions tunes the rate-limit middleware.
type RateLimitOptions struct {
	// Limiter overrides the gateway's default limiter, letting a route carry
	// a stricter budget than the rest of the API.
	Limiter rate.Limiter

	// KeyFunc derives the window key from the request. Default: client IP.
	KeyFunc func(r *http.Request) string
}

// RateLimit enforces a fixed-window budget per key. Every response carries
// X-RateLimit-Limit, X-RateLimit-Remaining, and X-RateLimit-Reset (epoch
// milliseconds); rejected requests additionally carry Retry-After and a 429
// envelope. A failing limiter backend fails open.
func RateLimit(gw *shopgate.Gateway, opts RateLimitOptions) Middleware {
	limiter := opts.Limiter
	if limiter == nil {
		limiter = gw.Limiter()
	}
	keyFunc := opts.KeyFunc
	if keyFunc == nil {
		keyFunc = clientIP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)

			res, err := limiter.Allow(r.Context(), key)
			if err != nil {
				// A broken limiter backend must not take the API down.
				logger := gw.Logger()
				logger.Warn().Err(err).Str("key", key).
					Msg("rate limiter unavailable, failing open")
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, res)

			if !res.Allowed {
				gw.Metrics().Inc(shopgate.MetricRateLimitHit)
				gw.Audit().Emit(r.Context(), audit.Event{
					Timestamp: time.Now(),
					Type:      audit.EventRateLimited,
					IP:        clientIP(r),
					Path:      r.URL.Path,
				})

				retry := int(math.Ceil(res.RetryAfter.Seconds()))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				shopgate.WriteError(w, shopgate.ErrRateLimitExceeded)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, res rate.Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.UnixMilli(), 10))
}
