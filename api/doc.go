// Package api assembles the demo storefront HTTP surface on top of the
// gateway: login/logout/register, profile, an admin overview, a small
// product catalog, and the metrics and health endpoints. Route chains are
// built with middleware.Compose in the order auth, rate limit, validation,
// CORS (outermost to innermost), all inside request logging and panic
// recovery.
package api
