// Package middleware provides the composable request pipeline: session
// authentication, guest gating, fixed-window rate limiting, request
// validation, CORS, structured request logging, and panic recovery.
//
// Every middleware is a func(http.Handler) http.Handler, so they nest with
// plain function application or with [Compose], which applies right to left:
// Compose(A, B, C)(h) == A(B(C(h))). Request flow enters through A and
// reaches C last; the response unwinds in reverse.
package middleware
