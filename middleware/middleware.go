package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/shopkit/shopgate/session"
)

// Middleware is one layer of the request pipeline.
type Middleware func(http.Handler) http.Handler

// Compose nests middlewares right to left: Compose(A, B, C)(h) == A(B(C(h))).
// The first middleware listed is the outermost layer.
func Compose(mws ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] == nil {
				continue
			}
			next = mws[i](next)
		}
		return next
	}
}

// SessionCookieName is the cookie checked before the Authorization header.
const SessionCookieName = "authToken"

type sessionContextKey struct{}

// withSession attaches the resolved session to the request context.
func withSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the session attached by the auth middleware,
// or nil when the request is unauthenticated.
func SessionFromContext(ctx context.Context) *session.Session {
	if ctx == nil {
		return nil
	}
	sess, _ := ctx.Value(sessionContextKey{}).(*session.Session)
	return sess
}

// TokenFromRequest extracts the bearer token. The authToken cookie wins;
// an "Authorization: Bearer <token>" header is the fallback. Empty string
// means the request carries no credential.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}

// clientIP favors the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer with the port stripped.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
