package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// defaultConfigPaths are searched in order; the first file found wins.
var defaultConfigPaths = []string{
	"shopgate.yaml",
	"shopgate.yml",
	"/etc/shopgate/config.yaml",
}

// configPathEnvVar overrides the config file search.
const configPathEnvVar = "SHOPGATE_CONFIG"

// envPrefix namespaces environment overrides: SHOPGATE_SERVER_PORT sets
// server.port, SHOPGATE_RATELIMIT_MAX_REQUESTS sets ratelimit.max_requests.
const envPrefix = "SHOPGATE_"

type daemonConfig struct {
	Server    serverConfig    `koanf:"server"`
	Logging   loggingConfig   `koanf:"logging"`
	Redis     redisConfig     `koanf:"redis"`
	Session   sessionConfig   `koanf:"session"`
	RateLimit rateLimitConfig `koanf:"ratelimit"`
	CORS      corsConfig      `koanf:"cors"`
	Audit     auditConfig     `koanf:"audit"`
	Demo      demoConfig      `koanf:"demo"`
}

type serverConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type loggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
}

type redisConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type sessionConfig struct {
	TTL    time.Duration `koanf:"ttl"`
	Prefix string        `koanf:"prefix"`
}

type rateLimitConfig struct {
	MaxRequests      int           `koanf:"max_requests"`
	Window           time.Duration `koanf:"window"`
	LoginMaxRequests int           `koanf:"login_max_requests"`
	LoginWindow      time.Duration `koanf:"login_window"`
}

type corsConfig struct {
	Origins          string `koanf:"origins"` // comma-separated
	AllowCredentials bool   `koanf:"allow_credentials"`
	MaxAge           int    `koanf:"max_age"`
}

type auditConfig struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffer_size"`
}

type demoConfig struct {
	SeedUsers bool `koanf:"seed_users"`
}

func defaultDaemonConfig() daemonConfig {
	return daemonConfig{
		Server: serverConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: loggingConfig{
			Level:  "info",
			Format: "json",
		},
		Redis: redisConfig{
			Enabled: false,
			Addr:    "127.0.0.1:6379",
		},
		Session: sessionConfig{
			TTL:    24 * time.Hour,
			Prefix: "sg:sess",
		},
		RateLimit: rateLimitConfig{
			MaxRequests:      100,
			Window:           time.Minute,
			LoginMaxRequests: 10,
			LoginWindow:      time.Minute,
		},
		CORS: corsConfig{
			Origins:          "*",
			AllowCredentials: false,
			MaxAge:           600,
		},
		Audit: auditConfig{
			Enabled:    true,
			BufferSize: 256,
		},
		Demo: demoConfig{
			SeedUsers: true,
		},
	}
}

// loadConfig layers defaults, an optional YAML file, and SHOPGATE_* env
// overrides, highest priority last.
func loadConfig() (daemonConfig, error) {
	cfg := defaultDaemonConfig()

	k := koanf.New(".")

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		// SHOPGATE_SERVER_PORT -> server.port; only the first underscore
		// becomes a section separator, so section names stay single words.
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.Replace(s, "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return cfg, fmt.Errorf("load environment: %w", err)
	}

	// Unmarshal over the prefilled defaults; absent keys keep them.
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(configPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
