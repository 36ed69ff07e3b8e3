// Package shopgate implements the request pipeline of a demonstration
// storefront: an opaque-token session store, composable HTTP middleware
// (authentication, guest gating, rate limiting, validation, CORS, logging),
// a priority-ordered redirect engine, and a small gateway that ties them
// together behind a fluent builder.
//
// The package is deliberately self-contained: state lives in injected
// stores (in-memory by default, Redis optionally), never in package-level
// globals, so every component can be constructed and cleared in tests.
package shopgate
