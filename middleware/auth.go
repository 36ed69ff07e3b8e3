package middleware

import (
	"net/http"
	"time"

	"github.com/shopkit/shopgate"
	"github.com/shopkit/shopgate/audit"
	"github.com/shopkit/shopgate/session"
)

// AuthOptions tunes the authentication middleware.
type AuthOptions struct {
	// Optional lets unauthenticated requests through with no session in the
	// context. Role and permission constraints still apply to requests that
	// DO carry a valid session.
	Optional bool

	// Roles is an allow-list; a session whose role matches any entry passes.
	// Empty means any role.
	Roles []string

	// Permissions must all be present on the session. Empty means none
	// required.
	Permissions []string

	// RedirectTo serves a 302 to this path instead of a JSON error for
	// browser-facing routes. Constraint failures (role/permission) still
	// return JSON.
	RedirectTo string
}

// Auth authenticates the request against the gateway's session store and
// attaches the session to the context. Checks run in a fixed order: token
// presence, session lookup, role allow-list, then required permissions.
func Auth(gw *shopgate.Gateway, opts AuthOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				if opts.Optional {
					next.ServeHTTP(w, r)
					return
				}
				denyAuth(gw, w, r, shopgate.ErrUnauthorized, opts.RedirectTo, nil)
				return
			}

			sess, err := gw.Authenticate(r.Context(), token)
			if err != nil {
				if opts.Optional {
					// Stale token on an optional route degrades to anonymous.
					next.ServeHTTP(w, r)
					return
				}
				denyAuth(gw, w, r, err, opts.RedirectTo, nil)
				return
			}

			if len(opts.Roles) > 0 && !roleAllowed(sess.Role, opts.Roles) {
				denyAuth(gw, w, r, shopgate.ErrInsufficientPermissions, "", sess)
				return
			}
			for _, p := range opts.Permissions {
				if !sess.HasPermission(p) {
					denyAuth(gw, w, r, shopgate.ErrInsufficientPermissions, "", sess)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
		})
	}
}

// RequireAuth is Auth with no constraints: any live session passes.
func RequireAuth(gw *shopgate.Gateway) Middleware {
	return Auth(gw, AuthOptions{})
}

// RequireRoles is Auth constrained to the given role allow-list.
func RequireRoles(gw *shopgate.Gateway, roles ...string) Middleware {
	return Auth(gw, AuthOptions{Roles: roles})
}

// OptionalAuth attaches a session when a valid token is present and stays
// silent otherwise.
func OptionalAuth(gw *shopgate.Gateway) Middleware {
	return Auth(gw, AuthOptions{Optional: true})
}

func roleAllowed(role string, allowed []string) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

func denyAuth(gw *shopgate.Gateway, w http.ResponseWriter, r *http.Request, err error, redirectTo string, sess *session.Session) {
	gw.Metrics().Inc(shopgate.MetricAuthDenied)

	event := audit.Event{
		Timestamp: time.Now(),
		Type:      audit.EventAuthDenied,
		IP:        clientIP(r),
		Path:      r.URL.Path,
		Error:     shopgate.AsError(err).Message,
	}
	if sess != nil {
		event.UserID = sess.UserID
		event.Email = sess.Email
	}
	gw.Audit().Emit(r.Context(), event)

	if redirectTo != "" {
		http.Redirect(w, r, redirectTo, http.StatusFound)
		return
	}
	shopgate.WriteError(w, err)
}
