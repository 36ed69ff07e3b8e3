package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopkit/shopgate"
	"github.com/shopkit/shopgate/rate"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (rate.Result, error) {
	return rate.Result{}, rate.ErrUnavailable
}

func TestRateLimitAnnotatesEveryResponse(t *testing.T) {
	gw := newTestGateway(t)
	limiter := rate.NewFixedWindow(rate.Config{MaxRequests: 2, Window: time.Minute})
	handler := RateLimit(gw, RateLimitOptions{Limiter: limiter})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Fatalf("X-RateLimit-Limit = %q, want 2", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "1" {
		t.Fatalf("X-RateLimit-Remaining = %q, want 1", got)
	}

	resetMillis, err := strconv.ParseInt(rec.Header().Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		t.Fatalf("X-RateLimit-Reset not an integer: %v", err)
	}
	reset := time.UnixMilli(resetMillis)
	if until := time.Until(reset); until <= 0 || until > time.Minute+time.Second {
		t.Fatalf("X-RateLimit-Reset %v out of window range (%v from now)", reset, until)
	}
}

func TestRateLimitRejectsPastBudget(t *testing.T) {
	gw := newTestGateway(t)
	limiter := rate.NewFixedWindow(rate.Config{MaxRequests: 1, Window: time.Minute})
	handler := RateLimit(gw, RateLimitOptions{Limiter: limiter})(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Error != "RATE_LIMIT_EXCEEDED" {
		t.Fatalf("error = %q, want RATE_LIMIT_EXCEEDED", env.Error)
	}
	if retry, err := strconv.Atoi(rec.Header().Get("Retry-After")); err != nil || retry < 1 {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("X-RateLimit-Remaining = %q, want 0", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimitKeysByClientIP(t *testing.T) {
	gw := newTestGateway(t)
	limiter := rate.NewFixedWindow(rate.Config{MaxRequests: 1, Window: time.Minute})
	handler := RateLimit(gw, RateLimitOptions{Limiter: limiter})(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/x", nil)
	first.RemoteAddr = "10.0.0.1:50000"
	handler.ServeHTTP(httptest.NewRecorder(), first)

	// Same IP, different port: same window.
	second := httptest.NewRequest(http.MethodGet, "/x", nil)
	second.RemoteAddr = "10.0.0.1:50001"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("same IP status = %d, want 429", rec.Code)
	}

	// Different IP: fresh window.
	third := httptest.NewRequest(http.MethodGet, "/x", nil)
	third.RemoteAddr = "10.0.0.2:50000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, third)
	if rec.Code != http.StatusOK {
		t.Fatalf("other IP status = %d, want 200", rec.Code)
	}
}

func TestRateLimitFailsOpenWhenLimiterErrors(t *testing.T) {
	var buf bytes.Buffer

	cfg := shopgate.DefaultConfig()
	cfg.Audit.Enabled = false

	gw, err := shopgate.New().
		WithConfig(cfg).
		WithLogger(zerolog.New(&buf)).
		WithUserProvider(shopgate.NewMemoryUserProvider()).
		WithPermissions([]string{"products:read"}).
		WithRoles(map[string][]string{"customer": {"products:read"}}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(gw.Close)

	handler := RateLimit(gw, RateLimitOptions{Limiter: failingLimiter{}})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (a broken limiter must not reject)", rec.Code)
	}
	if !strings.Contains(buf.String(), "failing open") {
		t.Fatalf("no fail-open warning logged:\n%s", buf.String())
	}
	if rec.Header().Get("X-RateLimit-Limit") != "" {
		t.Fatalf("rate headers set despite limiter failure: %v", rec.Header())
	}
}

func TestRateLimitHitIncrementsMetric(t *testing.T) {
	gw := newTestGateway(t)
	limiter := rate.NewFixedWindow(rate.Config{MaxRequests: 1, Window: time.Minute})
	handler := RateLimit(gw, RateLimitOptions{Limiter: limiter})(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	before := gw.Metrics().Get(shopgate.MetricRateLimitHit)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	if got := gw.Metrics().Get(shopgate.MetricRateLimitHit); got != before+1 {
		t.Fatalf("MetricRateLimitHit = %d, want %d", got, before+1)
	}
}
