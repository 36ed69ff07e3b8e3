package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/shopkit/shopgate"
)

// Recover converts handler panics into an INTERNAL_ERROR envelope and logs
// the stack. Mount it inside Logging: the 500 it writes then passes through
// the status-capturing writer and the access log records the failed request.
func Recover(logger zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					// net/http uses this sentinel to abort; re-panic so the
					// server handles it.
					panic(rec)
				}

				logger.Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")

				shopgate.WriteError(w, shopgate.ErrInternal)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
