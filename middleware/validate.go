package middleware

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/shopkit/shopgate"
)

// ValidateOptions declares the shape a request must satisfy before the
// handler runs.
type ValidateOptions struct {
	// RequiredHeaders must all be present and non-empty.
	RequiredHeaders []string

	// RequiredQuery lists query parameters that must be present and non-empty.
	RequiredQuery []string

	// MaxBodyBytes caps the request body. Zero means no cap. The body reader
	// is wrapped too, so handlers cannot be fed more than a lying
	// Content-Length admits.
	MaxBodyBytes int64

	// AllowedContentTypes restricts the media type of requests that carry a
	// body (POST, PUT, PATCH). Matching ignores parameters such as charset.
	// Empty means any.
	AllowedContentTypes []string

	// Metrics, when set, counts rejections. Inc on a nil receiver is a no-op,
	// so leaving this unset is fine.
	Metrics *shopgate.Metrics
}

// Validate rejects malformed requests before the handler runs. Checks apply
// in a fixed order and stop at the first failure: required headers, required
// query parameters, body size, then content type.
func Validate(opts ValidateOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reject := func(err error) {
				opts.Metrics.Inc(shopgate.MetricValidationFailed)
				shopgate.WriteError(w, err)
			}

			for _, name := range opts.RequiredHeaders {
				if r.Header.Get(name) == "" {
					reject(shopgate.ErrMissingHeader.WithMessage(
						fmt.Sprintf("missing required header: %s", name)))
					return
				}
			}

			query := r.URL.Query()
			for _, name := range opts.RequiredQuery {
				if query.Get(name) == "" {
					reject(shopgate.ErrMissingQueryParam.WithMessage(
						fmt.Sprintf("missing required query parameter: %s", name)))
					return
				}
			}

			if opts.MaxBodyBytes > 0 {
				if r.ContentLength > opts.MaxBodyBytes {
					reject(shopgate.ErrPayloadTooLarge)
					return
				}
				r.Body = http.MaxBytesReader(w, r.Body, opts.MaxBodyBytes)
			}

			if len(opts.AllowedContentTypes) > 0 && hasBody(r.Method) {
				ct := r.Header.Get("Content-Type")
				mediaType, _, err := mime.ParseMediaType(ct)
				if err != nil || !contentTypeAllowed(mediaType, opts.AllowedContentTypes) {
					reject(shopgate.ErrInvalidContentType.WithMessage(
						fmt.Sprintf("unsupported content type: %s", ct)))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

func contentTypeAllowed(mediaType string, allowed []string) bool {
	for _, a := range allowed {
		if mediaType == a {
			return true
		}
	}
	return false
}
