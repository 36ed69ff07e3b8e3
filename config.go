package shopgate

import (
	"errors"
	"time"
)

// Config carries the tuning knobs of the gateway and its middleware.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	Session   SessionConfig
	RateLimit RateLimitConfig
	Password  PasswordConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// SessionConfig controls session lifetime and the Redis key namespace used
// when a Redis-backed store is selected.
type SessionConfig struct {
	// TTL is the absolute session lifetime measured from creation. Activity
	// never extends it; see the session package for the expiry contract.
	TTL time.Duration

	// RedisPrefix namespaces session keys when Redis is configured.
	RedisPrefix string
}

// RateLimitConfig configures the default fixed-window limiter wired by the
// builder. Routes may still construct stricter limiters of their own.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

// PasswordConfig carries the argon2id parameters used to hash and verify
// user credentials.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// AuditConfig controls the asynchronous security-event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process counter set.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the demo defaults: 24h absolute sessions, a
// 100-requests-per-minute window, and moderate argon2id parameters.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL:         24 * time.Hour,
			RedisPrefix: "sg:sess",
		},
		RateLimit: RateLimitConfig{
			MaxRequests: 100,
			Window:      time.Minute,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        2,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the gateway cannot run with.
func (c Config) Validate() error {
	if c.Session.TTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if c.RateLimit.MaxRequests <= 0 {
		return errors.New("rate limit max requests must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	return nil
}

func cloneConfig(c Config) Config {
	// All fields are value types today; the explicit clone point keeps the
	// builder safe if reference fields are ever added.
	return c
}
