package shopgate

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/shopkit/shopgate/audit"
	"github.com/shopkit/shopgate/password"
	"github.com/shopkit/shopgate/permission"
	"github.com/shopkit/shopgate/rate"
	"github.com/shopkit/shopgate/session"
)

// Builder assembles a [Gateway]. All dependencies are injected here; the
// built gateway holds no package-level state.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger zerolog.Logger

	permissions []string
	roles       map[string][]string

	provider  UserProvider
	sessions  session.Store
	limiter   rate.Limiter
	auditSink audit.Sink

	built bool
}

// New starts a builder with [DefaultConfig] and a disabled logger.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis selects Redis-backed session and rate-limit stores. Without it
// the gateway runs on in-memory stores.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the gateway logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithPermissions declares the permission vocabulary.
func (b *Builder) WithPermissions(perms []string) *Builder {
	b.permissions = perms
	return b
}

// WithRoles declares role → permission-set definitions.
func (b *Builder) WithRoles(roles map[string][]string) *Builder {
	b.roles = roles
	return b
}

// WithUserProvider sets the credential source.
func (b *Builder) WithUserProvider(p UserProvider) *Builder {
	b.provider = p
	return b
}

// WithSessionStore overrides the store chosen by WithRedis / default.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessions = store
	return b
}

// WithRateLimiter overrides the default limiter.
func (b *Builder) WithRateLimiter(l rate.Limiter) *Builder {
	b.limiter = l
	return b
}

// WithAuditSink sets the audit destination; without it, enabled audit
// events are discarded by a no-op sink.
func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the wiring and returns the gateway. A builder is
// single-use.
func (b *Builder) Build() (*Gateway, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.provider == nil {
		return nil, errors.New("user provider required")
	}
	if len(b.permissions) == 0 {
		return nil, errors.New("permissions must be provided")
	}
	if len(b.roles) == 0 {
		return nil, errors.New("roles must be provided")
	}

	registry := permission.NewRegistry()
	for _, p := range b.permissions {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	registry.Freeze()

	roleManager := permission.NewRoleManager(registry)
	for roleName, perms := range b.roles {
		if err := roleManager.RegisterRole(roleName, perms); err != nil {
			return nil, err
		}
	}
	roleManager.Freeze()

	sessions := b.sessions
	if sessions == nil {
		if b.redis != nil {
			sessions = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix)
		} else {
			sessions = session.NewMemoryStore()
		}
	}

	limiter := b.limiter
	if limiter == nil {
		rateCfg := rate.Config{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
		}
		if b.redis != nil {
			limiter = rate.NewRedisLimiter(b.redis, "sg:rl", rateCfg)
		} else {
			limiter = rate.NewFixedWindow(rateCfg)
		}
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	gw := &Gateway{
		config:   cfg,
		logger:   b.logger,
		sessions: sessions,
		limiter:  limiter,
		registry: registry,
		roles:    roleManager,
		provider: b.provider,
		hasher:   hasher,
		metrics:  NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	b.built = true
	return gw, nil
}
