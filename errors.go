package shopgate

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine-readable tag carried by every [*Error] the
// gateway or its middleware produce. Codes are stable API; messages are not.
type ErrorCode string

const (
	// CodeUnauthorized marks requests with no usable credential.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// CodeInvalidSession marks tokens that resolve to no live session.
	CodeInvalidSession ErrorCode = "INVALID_SESSION"
	// CodeInsufficientPermissions marks authenticated requests failing a
	// role or permission constraint.
	CodeInsufficientPermissions ErrorCode = "INSUFFICIENT_PERMISSIONS"
	// CodeAlreadyAuthenticated marks authenticated requests to guest-only routes.
	CodeAlreadyAuthenticated ErrorCode = "ALREADY_AUTHENTICATED"
	// CodeMissingHeader marks requests lacking a required header.
	CodeMissingHeader ErrorCode = "MISSING_HEADER"
	// CodeMissingQueryParam marks requests lacking a required query parameter.
	CodeMissingQueryParam ErrorCode = "MISSING_QUERY_PARAM"
	// CodePayloadTooLarge marks requests whose declared body exceeds the cap.
	CodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	// CodeInvalidContentType marks mutating requests with an unsupported content type.
	CodeInvalidContentType ErrorCode = "INVALID_CONTENT_TYPE"
	// CodeRateLimitExceeded marks requests rejected by the fixed-window limiter.
	CodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// CodeNotFound marks lookups of absent resources.
	CodeNotFound ErrorCode = "NOT_FOUND"
	// CodeMethodNotAllowed marks requests using an unsupported verb on a
	// known route.
	CodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	// CodeValidationError marks malformed request bodies or parameters.
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	// CodeInternal marks unexpected failures surfaced to the client.
	CodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Error is the tagged application error of the pipeline: an HTTP status,
// a machine-readable code, and a human-readable message. Middleware either
// resolve an Error into a redirect or surface it unchanged to the envelope
// writer; nothing in the pipeline retries or swallows one.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string

	cause error
}

// NewError creates an [*Error] with the given code, HTTP status, and message.
func NewError(code ErrorCode, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.cause }

// Is matches any [*Error] carrying the same code, so sentinel comparisons
// like errors.Is(err, ErrUnauthorized) work on derived instances.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *Error) WithMessage(message string) *Error {
	clone := *e
	clone.Message = message
	return &clone
}

// WithCause returns a copy of e wrapping the given cause.
func (e *Error) WithCause(cause error) *Error {
	clone := *e
	clone.cause = cause
	return &clone
}

var (
	// ErrUnauthorized is returned when no token accompanies a protected request.
	ErrUnauthorized = NewError(CodeUnauthorized, http.StatusUnauthorized, "authentication required")
	// ErrInvalidSession is returned when a token maps to no live session.
	ErrInvalidSession = NewError(CodeInvalidSession, http.StatusUnauthorized, "invalid or expired session")
	// ErrInsufficientPermissions is returned when a role or permission check fails.
	ErrInsufficientPermissions = NewError(CodeInsufficientPermissions, http.StatusForbidden, "insufficient permissions")
	// ErrAlreadyAuthenticated is returned when a session holder hits a guest-only route.
	ErrAlreadyAuthenticated = NewError(CodeAlreadyAuthenticated, http.StatusForbidden, "already authenticated")
	// ErrMissingHeader is returned when a required header is absent.
	ErrMissingHeader = NewError(CodeMissingHeader, http.StatusBadRequest, "missing required header")
	// ErrMissingQueryParam is returned when a required query parameter is absent.
	ErrMissingQueryParam = NewError(CodeMissingQueryParam, http.StatusBadRequest, "missing required query parameter")
	// ErrPayloadTooLarge is returned when Content-Length exceeds the configured cap.
	ErrPayloadTooLarge = NewError(CodePayloadTooLarge, http.StatusRequestEntityTooLarge, "request payload too large")
	// ErrInvalidContentType is returned when a mutating request carries an unsupported content type.
	ErrInvalidContentType = NewError(CodeInvalidContentType, http.StatusNotAcceptable, "unsupported content type")
	// ErrRateLimitExceeded is returned when the fixed-window budget is exhausted.
	ErrRateLimitExceeded = NewError(CodeRateLimitExceeded, http.StatusTooManyRequests, "rate limit exceeded")
	// ErrNotFound is returned for lookups of absent resources.
	ErrNotFound = NewError(CodeNotFound, http.StatusNotFound, "not found")
	// ErrMethodNotAllowed is returned for unsupported verbs on known routes.
	ErrMethodNotAllowed = NewError(CodeMethodNotAllowed, http.StatusMethodNotAllowed, "method not allowed")
	// ErrValidation is returned for malformed input that fits no narrower code.
	ErrValidation = NewError(CodeValidationError, http.StatusBadRequest, "invalid request")
	// ErrInternal is returned for unexpected failures.
	ErrInternal = NewError(CodeInternal, http.StatusInternalServerError, "internal error")

	// ErrInvalidCredentials is the login failure sentinel. It deliberately
	// shares the UNAUTHORIZED code so responses do not reveal whether the
	// account exists.
	ErrInvalidCredentials = NewError(CodeUnauthorized, http.StatusUnauthorized, "invalid credentials")

	// ErrGatewayNotReady is returned when a nil or unbuilt gateway is used.
	ErrGatewayNotReady = errors.New("gateway not initialized")
)

// AsError normalizes any error into an [*Error]: tagged errors pass through,
// everything else becomes an INTERNAL_ERROR wrapping the original.
func AsError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal.WithCause(err)
}
