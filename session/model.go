package session

import "time"

// Session is the record a bearer token resolves to. A token maps to at most
// one session; the store owns the canonical copy and hands out clones.
type Session struct {
	Token  string
	UserID string
	Email  string
	Role   string

	Permissions []string

	// CreatedAt and ExpiresAt are unix seconds. ExpiresAt is fixed at
	// creation; nothing extends it.
	CreatedAt int64
	ExpiresAt int64

	// LastActivity is unix milliseconds of the most recent successful read.
	// Informational only.
	LastActivity int64
}

// ExpiredAt reports whether the session is past its absolute deadline at now.
func (s *Session) ExpiredAt(now time.Time) bool {
	return now.Unix() > s.ExpiresAt
}

// HasPermission reports whether the session carries the named permission.
func (s *Session) HasPermission(name string) bool {
	for _, p := range s.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy; stores return clones so callers cannot mutate
// the canonical record.
func (s *Session) Clone() *Session {
	clone := *s
	if s.Permissions != nil {
		clone.Permissions = append([]string(nil), s.Permissions...)
	}
	return &clone
}
