package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the default single-process store: a mutex-guarded map.
// The mutex is required; handlers run on concurrent goroutines, so the map
// cannot rely on any single-threaded scheduling assumption.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session

	now func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create persists sess under sess.Token. The TTL parameter exists for
// interface symmetry with the Redis store; expiry is enforced from
// sess.ExpiresAt on read.
func (s *MemoryStore) Create(_ context.Context, sess *Session, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.Token] = sess.Clone()
	return nil
}

// Get returns the live session for token or [ErrNotFound], lazily deleting
// expired entries and refreshing LastActivity on hit.
func (s *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}

	now := s.now()
	if sess.ExpiredAt(now) {
		delete(s.sessions, token)
		return nil, ErrNotFound
	}

	sess.LastActivity = now.UnixMilli()
	return sess.Clone(), nil
}

// Invalidate removes the session if present.
func (s *MemoryStore) Invalidate(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[token]; !ok {
		return false, nil
	}
	delete(s.sessions, token)
	return true, nil
}

// Update merges partial fields into a live session. Expired entries are
// treated exactly like Get: deleted, and reported as absent.
func (s *MemoryStore) Update(_ context.Context, token string, up Update) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return false, nil
	}
	if sess.ExpiredAt(s.now()) {
		delete(s.sessions, token)
		return false, nil
	}

	applyUpdate(sess, up)
	return true, nil
}

// Clear drops all sessions.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]*Session)
	return nil
}

// Len returns the number of stored entries, including any not yet reaped
// expired ones. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func applyUpdate(sess *Session, up Update) {
	if up.Email != nil {
		sess.Email = *up.Email
	}
	if up.Role != nil {
		sess.Role = *up.Role
	}
	if up.Permissions != nil {
		sess.Permissions = append([]string(nil), up.Permissions...)
	}
}
