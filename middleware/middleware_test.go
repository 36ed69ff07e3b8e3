package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopkit/shopgate"
)

// newTestGateway builds a gateway over in-memory stores with one customer
// and one admin account. Hashing runs with minimal argon2 cost.
func newTestGateway(t *testing.T) *shopgate.Gateway {
	t.Helper()

	cfg := shopgate.DefaultConfig()
	cfg.Password = shopgate.PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	cfg.Audit.Enabled = false
	cfg.RateLimit.MaxRequests = 1000

	provider := shopgate.NewMemoryUserProvider()

	gw, err := shopgate.New().
		WithConfig(cfg).
		WithUserProvider(provider).
		WithPermissions([]string{"products:read", "orders:write", "admin:metrics"}).
		WithRoles(map[string][]string{
			"customer": {"products:read", "orders:write"},
			"admin":    {"products:read", "orders:write", "admin:metrics"},
		}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(gw.Close)

	for _, seed := range []struct{ email, password, role string }{
		{"alice@example.com", "alice-password", "customer"},
		{"root@example.com", "root-password", "admin"},
	} {
		hash, err := gw.HashPassword(seed.password)
		if err != nil {
			t.Fatalf("HashPassword: %v", err)
		}
		provider.Put(shopgate.UserRecord{
			UserID:       "id-" + seed.role,
			Email:        seed.email,
			PasswordHash: hash,
			Role:         seed.role,
		})
	}

	return gw
}

func loginAs(t *testing.T, gw *shopgate.Gateway, email, password string) string {
	t.Helper()

	token, _, err := gw.Login(context.Background(), email, password)
	if err != nil {
		t.Fatalf("Login(%s): %v", email, err)
	}
	return token
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) shopgate.Envelope {
	t.Helper()

	var env shopgate.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, rec.Body.String())
	}
	return env
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		shopgate.WriteSuccess(w, http.StatusOK, "ok")
	})
}

func TestComposeAppliesRightToLeft(t *testing.T) {
	var trace []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trace = append(trace, "enter "+name)
				next.ServeHTTP(w, r)
				trace = append(trace, "exit "+name)
			})
		}
	}

	handler := Compose(tag("A"), tag("B"), tag("C"))(http.HandlerFunc(
		func(http.ResponseWriter, *http.Request) {
			trace = append(trace, "handler")
		}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"enter A", "enter B", "enter C", "handler", "exit C", "exit B", "exit A"}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace[%d] = %q, want %q (full: %v)", i, trace[i], want[i], trace)
		}
	}
}

func TestComposeWithNoMiddlewares(t *testing.T) {
	called := false
	handler := Compose()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("handler not reached through empty composition")
	}
}

func TestTokenFromRequestCookieWinsOverHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
	r.Header.Set("Authorization", "Bearer header-token")

	if got := TokenFromRequest(r); got != "cookie-token" {
		t.Fatalf("TokenFromRequest = %q, want cookie-token", got)
	}
}

func TestTokenFromRequestBearerFallback(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	if got := TokenFromRequest(r); got != "header-token" {
		t.Fatalf("TokenFromRequest = %q, want header-token", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "bearer case-token")
	if got := TokenFromRequest(r); got != "case-token" {
		t.Fatalf("TokenFromRequest = %q, want case-token (scheme is case-insensitive)", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if got := TokenFromRequest(r); got != "" {
		t.Fatalf("TokenFromRequest = %q for Basic auth, want empty", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	if got := TokenFromRequest(r); got != "" {
		t.Fatalf("TokenFromRequest = %q with no credential, want empty", got)
	}
}

// Session expiry is absolute: a session read just before the deadline works,
// one read just after fails, regardless of activity in between.
func TestAuthenticateHonorsAbsoluteExpiry(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()

	token := loginAs(t, gw, "alice@example.com", "alice-password")

	sess, err := gw.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	ttl := time.Until(time.Unix(sess.ExpiresAt, 0))
	if ttl <= 23*time.Hour || ttl > 24*time.Hour {
		t.Fatalf("session TTL = %v, want ~24h", ttl)
	}
}
