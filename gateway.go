package shopgate

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopkit/shopgate/audit"
	"github.com/shopkit/shopgate/internal"
	"github.com/shopkit/shopgate/password"
	"github.com/shopkit/shopgate/permission"
	"github.com/shopkit/shopgate/rate"
	"github.com/shopkit/shopgate/session"
)

// Gateway is the authentication engine behind the middleware: it owns the
// session store, the role/permission tables, the password hasher, and the
// default rate limiter. Construct one with [New] and [Builder.Build].
type Gateway struct {
	config   Config
	logger   zerolog.Logger
	sessions session.Store
	limiter  rate.Limiter
	registry *permission.Registry
	roles    *permission.RoleManager
	provider UserProvider
	hasher   *password.Hasher
	metrics  *Metrics
	audit    *audit.Dispatcher
}

// Login verifies email/password against the user provider and mints a
// session with an absolute TTL. Credential failures of any kind collapse
// into [ErrInvalidCredentials] so callers cannot probe for known emails.
func (g *Gateway) Login(ctx context.Context, email, pass string) (string, *session.Session, error) {
	user, err := g.provider.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			g.loginFailed(ctx, email, "unknown email")
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, ErrInternal.WithCause(err)
	}

	ok, err := g.hasher.Verify(pass, user.PasswordHash)
	if err != nil {
		return "", nil, ErrInternal.WithCause(err)
	}
	if !ok {
		g.loginFailed(ctx, email, "password mismatch")
		return "", nil, ErrInvalidCredentials
	}

	perms, ok := g.roles.PermissionsFor(user.Role)
	if !ok {
		g.logger.Error().Str("role", user.Role).Str("user_id", user.UserID).
			Msg("user carries unregistered role")
		return "", nil, ErrInternal.WithMessage("Unknown role")
	}

	token, err := internal.NewSessionToken()
	if err != nil {
		return "", nil, ErrInternal.WithCause(err)
	}

	now := time.Now()
	sess := &session.Session{
		Token:        token,
		UserID:       user.UserID,
		Email:        user.Email,
		Role:         user.Role,
		Permissions:  perms,
		CreatedAt:    now.Unix(),
		ExpiresAt:    now.Add(g.config.Session.TTL).Unix(),
		LastActivity: now.UnixMilli(),
	}

	if err := g.sessions.Create(ctx, sess, g.config.Session.TTL); err != nil {
		return "", nil, ErrInternal.WithCause(err)
	}

	g.metrics.Inc(MetricLoginSuccess)
	g.metrics.Inc(MetricSessionCreated)
	g.audit.Emit(ctx, audit.Event{
		Timestamp: now,
		Type:      audit.EventLoginSuccess,
		UserID:    user.UserID,
		Email:     user.Email,
		IP:        ClientIPFromContext(ctx),
		Success:   true,
	})
	g.logger.Debug().Str("user_id", user.UserID).Str("role", user.Role).
		Msg("session created")

	return token, sess, nil
}

func (g *Gateway) loginFailed(ctx context.Context, email, reason string) {
	g.metrics.Inc(MetricLoginFailure)
	g.audit.Emit(ctx, audit.Event{
		Timestamp: time.Now(),
		Type:      audit.EventLoginFailure,
		Email:     email,
		IP:        ClientIPFromContext(ctx),
		Error:     reason,
	})
	g.logger.Debug().Str("email", email).Str("reason", reason).
		Msg("login rejected")
}

// Authenticate resolves a bearer token to its live session. Unknown,
// malformed, and expired tokens all come back as [ErrInvalidSession].
func (g *Gateway) Authenticate(ctx context.Context, token string) (*session.Session, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	if err := internal.ValidateSessionToken(token); err != nil {
		return nil, ErrInvalidSession
	}

	sess, err := g.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			g.metrics.Inc(MetricSessionExpired)
			return nil, ErrInvalidSession
		}
		return nil, ErrInternal.WithCause(err)
	}
	return sess, nil
}

// Logout invalidates the session for token. The bool mirrors the store:
// true when a session existed and was removed.
func (g *Gateway) Logout(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	removed, err := g.sessions.Invalidate(ctx, token)
	if err != nil {
		return false, ErrInternal.WithCause(err)
	}
	if removed {
		g.metrics.Inc(MetricSessionInvalidated)
		g.audit.Emit(ctx, audit.Event{
			Timestamp: time.Now(),
			Type:      audit.EventLogout,
			IP:        ClientIPFromContext(ctx),
			Success:   true,
		})
	}
	return removed, nil
}

// UpdateSessionRole switches a live session to a new role, replacing its
// permission set with the role's registered set.
func (g *Gateway) UpdateSessionRole(ctx context.Context, token, role string) (bool, error) {
	perms, ok := g.roles.PermissionsFor(role)
	if !ok {
		return false, ErrValidation.WithMessage("Unknown role")
	}

	updated, err := g.sessions.Update(ctx, token, session.Update{
		Role:        &role,
		Permissions: perms,
	})
	if err != nil {
		return false, ErrInternal.WithCause(err)
	}
	return updated, nil
}

// HashPassword derives a storable credential hash for registration flows.
func (g *Gateway) HashPassword(pass string) (string, error) {
	hash, err := g.hasher.Hash(pass)
	if err != nil {
		return "", ErrValidation.WithMessage(err.Error())
	}
	return hash, nil
}

// Sessions exposes the underlying session store.
func (g *Gateway) Sessions() session.Store { return g.sessions }

// Limiter exposes the default rate limiter wired by the builder.
func (g *Gateway) Limiter() rate.Limiter { return g.limiter }

// Roles exposes the frozen role manager.
func (g *Gateway) Roles() *permission.RoleManager { return g.roles }

// Permissions exposes the frozen permission registry.
func (g *Gateway) Permissions() *permission.Registry { return g.registry }

// Metrics exposes the gateway counter set.
func (g *Gateway) Metrics() *Metrics { return g.metrics }

// MetricsSnapshot returns a point-in-time copy of all counters.
func (g *Gateway) MetricsSnapshot() Snapshot { return g.metrics.Snapshot() }

// AuditDropped returns the number of audit events lost to backpressure.
func (g *Gateway) AuditDropped() uint64 { return g.audit.Dropped() }

// Audit exposes the audit dispatcher; nil when audit is disabled.
func (g *Gateway) Audit() *audit.Dispatcher { return g.audit }

// Logger returns the gateway logger for middleware that wants to share it.
func (g *Gateway) Logger() zerolog.Logger { return g.logger }

// Config returns a copy of the effective configuration.
func (g *Gateway) Config() Config { return cloneConfig(g.config) }

// Close drains the audit dispatcher. The session store is left to its
// owner; in-memory stores need no teardown and Redis clients are shared.
func (g *Gateway) Close() {
	g.audit.Close()
}
