package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a token resolves to no live session, whether
// the entry was never created, already invalidated, or found expired.
var ErrNotFound = errors.New("session not found")

// Update carries the partial fields merged into a live session by
// [Store.Update]. Nil pointers and nil slices mean "unchanged".
type Update struct {
	Email       *string
	Role        *string
	Permissions []string
}

// Store is the session persistence contract. Two implementations exist:
// [MemoryStore] (default) and [RedisStore] (multi-instance demos).
//
// All implementations share the expiry contract documented on the package:
// absolute expiry, lazy deletion on read, LastActivity refresh on hit.
type Store interface {
	// Create persists sess under sess.Token with the given TTL.
	Create(ctx context.Context, sess *Session, ttl time.Duration) error

	// Get returns the live session for token or [ErrNotFound]. A hit
	// refreshes LastActivity; an expired entry is deleted and reported
	// as ErrNotFound.
	Get(ctx context.Context, token string) (*Session, error)

	// Invalidate removes the session. It is idempotent and reports whether
	// an entry was actually removed.
	Invalidate(ctx context.Context, token string) (bool, error)

	// Update merges the partial fields into a live session and reports
	// whether one existed.
	Update(ctx context.Context, token string, up Update) (bool, error)

	// Clear drops all sessions. Exposed for tests and demo resets.
	Clear(ctx context.Context) error
}
