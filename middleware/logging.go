package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shopkit/shopgate"
)

// statusWriter captures the status code and byte count for the access log.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.written += int64(n)
	return n, err
}

// Logging assigns each request a UUID correlation ID, stores the caller's
// IP and user agent in the context for downstream audit events, echoes the
// ID in X-Request-ID, and emits one structured access-log line per request.
func Logging(logger zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()
			ip := clientIP(r)

			ctx := shopgate.WithRequestID(r.Context(), requestID)
			ctx = shopgate.WithClientIP(ctx, ip)
			ctx = shopgate.WithUserAgent(ctx, r.UserAgent())

			w.Header().Set("X-Request-ID", requestID)

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r.WithContext(ctx))

			if sw.status == 0 {
				sw.status = http.StatusOK
			}

			logger.Info().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Int64("bytes", sw.written).
				Dur("duration", time.Since(start)).
				Str("ip", ip).
				Str("user_agent", r.UserAgent()).
				Msg("request")
		})
	}
}
