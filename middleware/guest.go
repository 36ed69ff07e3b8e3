package middleware

import (
	"net/http"
	"time"

	"github.com/shopkit/shopgate"
	"github.com/shopkit/shopgate/audit"
)

// GuestOptions tunes the guest-only middleware.
type GuestOptions struct {
	// RedirectTo sends authenticated visitors here with a 302 instead of a
	// JSON error. Typical for login pages bouncing users to their dashboard.
	RedirectTo string
}

// Guest rejects requests that carry a live session. Requests with no token,
// or with a token that no longer resolves, pass through as guests.
func Guest(gw *shopgate.Gateway, opts GuestOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := gw.Authenticate(r.Context(), token)
			if err != nil {
				// Dead token: treat the visitor as a guest.
				next.ServeHTTP(w, r)
				return
			}

			gw.Metrics().Inc(shopgate.MetricGuestBlocked)
			gw.Audit().Emit(r.Context(), audit.Event{
				Timestamp: time.Now(),
				Type:      audit.EventGuestBlocked,
				UserID:    sess.UserID,
				Email:     sess.Email,
				IP:        clientIP(r),
				Path:      r.URL.Path,
			})

			if opts.RedirectTo != "" {
				http.Redirect(w, r, opts.RedirectTo, http.StatusFound)
				return
			}
			shopgate.WriteError(w, shopgate.ErrAlreadyAuthenticated)
		})
	}
}

// RequireGuest is Guest with default options.
func RequireGuest(gw *shopgate.Gateway) Middleware {
	return Guest(gw, GuestOptions{})
}
