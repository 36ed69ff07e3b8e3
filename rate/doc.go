// Package rate implements fixed-window request budgets: requests are
// counted in discrete, non-overlapping windows keyed by a caller-chosen
// identifier (typically the client IP). Window reset is lazy; no timers run.
package rate
