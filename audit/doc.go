// Package audit dispatches gateway security events (logins, rate-limit
// hits, guest blocks, redirects) to pluggable sinks without blocking the
// request path: events flow through a buffered channel and a single drain
// goroutine, with an explicit dropped counter under backpressure.
package audit
