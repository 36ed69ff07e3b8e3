package shopgate

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// UserRecord is the account record returned by a [UserProvider]. It carries
// the credential hash and the role the session will be minted with.
type UserRecord struct {
	UserID       string
	Email        string
	PasswordHash string
	Role         string
}

// UserProvider is the credential-lookup interface callers implement to
// integrate the gateway with their user source. The demo ships
// [MemoryUserProvider]; a real deployment would back this with a database.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
}

// UserRegistrar is the optional account-creation side of a provider,
// used by guest-gated registration routes.
type UserRegistrar interface {
	CreateUser(ctx context.Context, email, passwordHash, role string) (UserRecord, error)
}

// Envelope is the standard response body of every API route:
// {success, data?, message?, error?, metadata?}.
type Envelope struct {
	Success  bool           `json:"success"`
	Data     any            `json:"data,omitempty"`
	Message  string         `json:"message,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MemoryUserProvider is a mutex-guarded in-memory [UserProvider] and
// [UserRegistrar] used by the demo server and the test suite.
type MemoryUserProvider struct {
	mu      sync.RWMutex
	byEmail map[string]UserRecord
}

// NewMemoryUserProvider returns an empty in-memory provider.
func NewMemoryUserProvider() *MemoryUserProvider {
	return &MemoryUserProvider{byEmail: make(map[string]UserRecord)}
}

// Put stores or replaces a user record, keyed by email.
func (p *MemoryUserProvider) Put(u UserRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byEmail[u.Email] = u
}

// GetUserByEmail returns the record for email, or [ErrNotFound].
func (p *MemoryUserProvider) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	u, ok := p.byEmail[email]
	if !ok {
		return UserRecord{}, ErrNotFound.WithMessage("user not found")
	}
	return u, nil
}

// CreateUser registers a new account. Duplicate emails are rejected with a
// VALIDATION_ERROR so registration does not leak through a 404.
func (p *MemoryUserProvider) CreateUser(_ context.Context, email, passwordHash, role string) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byEmail[email]; exists {
		return UserRecord{}, ErrValidation.WithMessage("email already registered")
	}

	u := UserRecord{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}
	p.byEmail[email] = u
	return u, nil
}
