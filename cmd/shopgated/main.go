package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/shopkit/shopgate"
	"github.com/shopkit/shopgate/api"
	"github.com/shopkit/shopgate/audit"
	"github.com/shopkit/shopgate/middleware"
	"github.com/shopkit/shopgate/rate"
	"github.com/shopkit/shopgate/redirect"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "shopgated:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}

	gwConfig := shopgate.DefaultConfig()
	gwConfig.Session.TTL = cfg.Session.TTL
	gwConfig.Session.RedisPrefix = cfg.Session.Prefix
	gwConfig.RateLimit.MaxRequests = cfg.RateLimit.MaxRequests
	gwConfig.RateLimit.Window = cfg.RateLimit.Window
	gwConfig.Audit.Enabled = cfg.Audit.Enabled
	gwConfig.Audit.BufferSize = cfg.Audit.BufferSize

	provider := shopgate.NewMemoryUserProvider()

	builder := shopgate.New().
		WithConfig(gwConfig).
		WithLogger(logger).
		WithUserProvider(provider).
		WithPermissions([]string{
			"products:read",
			"orders:read",
			"orders:write",
			"admin:metrics",
			"users:manage",
		}).
		WithRoles(map[string][]string{
			"customer": {"products:read", "orders:read", "orders:write"},
			"support":  {"products:read", "orders:read"},
			"admin":    {"products:read", "orders:read", "orders:write", "admin:metrics", "users:manage"},
		}).
		WithAuditSink(&logSink{logger: logger})

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		builder = builder.WithRedis(redisClient)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis backends")
	}

	gw, err := builder.Build()
	if err != nil {
		return err
	}
	defer gw.Close()

	if cfg.Demo.SeedUsers {
		if err := seedDemoUsers(gw, provider); err != nil {
			return err
		}
		logger.Info().Msg("seeded demo users")
	}

	redirects, err := redirect.NewHandler(redirect.HandlerConfig{
		Metrics: gw.Metrics(),
		Audit:   gw.Audit(),
	},
		redirect.Rule{
			Pattern:     "/shop",
			Destination: "/api/products",
			Type:        redirect.Permanent,
			AddTracking: true,
			Priority:    10,
		},
		redirect.Rule{
			Regex:         regexp.MustCompile(`^/catalog(/.*)?$`),
			Destination:   "/api/products",
			Type:          redirect.Temporary,
			PreserveQuery: true,
			Priority:      5,
		},
	)
	if err != nil {
		return err
	}

	var loginLimiter rate.Limiter
	if cfg.RateLimit.LoginMaxRequests > 0 {
		loginLimiter = rate.NewFixedWindow(rate.Config{
			MaxRequests: cfg.RateLimit.LoginMaxRequests,
			Window:      cfg.RateLimit.LoginWindow,
		})
	}

	server := api.NewServer(gw, api.Config{
		Logger: logger,
		CORS: middleware.CORSOptions{
			AllowedOrigins:   splitOrigins(cfg.CORS.Origins),
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		},
		LoginLimiter: loginLimiter,
		Redirects:    redirects,
		Registrar:    provider,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newLogger(cfg loggingConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}

// logSink forwards audit events into the structured log.
type logSink struct {
	logger zerolog.Logger
}

func (s *logSink) Emit(_ context.Context, event audit.Event) {
	s.logger.Info().
		Str("type", string(event.Type)).
		Str("user_id", event.UserID).
		Str("email", event.Email).
		Str("ip", event.IP).
		Str("path", event.Path).
		Bool("success", event.Success).
		Str("error", event.Error).
		Msg("audit")
}

// seedDemoUsers fills the in-memory provider with well-known demo accounts.
func seedDemoUsers(gw *shopgate.Gateway, provider *shopgate.MemoryUserProvider) error {
	seeds := []struct {
		email    string
		password string
		role     string
	}{
		{"admin@shopkit.dev", "admin-dev-password", "admin"},
		{"support@shopkit.dev", "support-dev-password", "support"},
		{"alice@example.com", "customer-password", "customer"},
	}

	for i, seed := range seeds {
		hash, err := gw.HashPassword(seed.password)
		if err != nil {
			return fmt.Errorf("seed %s: %w", seed.email, err)
		}
		provider.Put(shopgate.UserRecord{
			UserID:       fmt.Sprintf("demo-%d", i+1),
			Email:        seed.email,
			PasswordHash: hash,
			Role:         seed.role,
		})
	}
	return nil
}
