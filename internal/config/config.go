package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ServerConfig holds dev API server configuration sourced from env vars.
type ServerConfig struct {
	Port          string
	DatabaseURL   string
	JWTSecret     string
	JWTIssuer     string
	JWTTTL        time.Duration
	CORSOrigins   []string
	SeedMockData  bool
	AdminPassword string
	// FilesDir holds uploaded file contents.
	FilesDir  string
	LogLevel  string
	LogFormat string
}

// LoadServer reads server configuration from the environment and performs minimal validation.
// An empty DATABASE_URL selects the in-memory store.
func LoadServer() (ServerConfig, error) {
	cfg := ServerConfig{
		Port:          fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:     fallback(os.Getenv("JWT_ISSUER"), "therapy-devserver"),
		JWTTTL:        minutes(os.Getenv("JWT_TTL_MINUTES"), 60*time.Minute),
		CORSOrigins:   parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		SeedMockData:  parseBool(os.Getenv("SEED_MOCK_DATA"), true),
		AdminPassword: fallback(os.Getenv("ADMIN_PASSWORD"), "admin123"),
		FilesDir:      fallback(os.Getenv("FILES_DIR"), filepath.Join("data", "files")),
		LogLevel:      fallback(os.Getenv("LOG_LEVEL"), "info"),
		LogFormat:     fallback(os.Getenv("LOG_FORMAT"), "text"),
	}

	if cfg.JWTSecret == "" {
		return ServerConfig{}, errors.New("JWT_SECRET is required")
	}
	if len(cfg.AdminPassword) < 8 {
		return ServerConfig{}, errors.New("ADMIN_PASSWORD must be at least 8 characters")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c ServerConfig) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Cache backend names.
const (
	CacheFile   = "file"
	CacheRedis  = "redis"
	CacheSQLite = "sqlite"
)

// ClientConfig holds console client configuration sourced from env vars.
type ClientConfig struct {
	APIBaseURL     string
	CacheBackend   string
	CachePath      string
	RedisURL       string
	CachePrefix    string
	RequestTimeout time.Duration
	// AllowAnonymous lets navigation proceed without a cached token.
	AllowAnonymous bool
	LogLevel       string
	LogFormat      string
}

// LoadClient reads console configuration from the environment and validates it.
func LoadClient() (ClientConfig, error) {
	cfg := ClientFromEnv()
	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// ClientFromEnv reads console configuration without validating it, so callers
// can apply overrides first.
func ClientFromEnv() ClientConfig {
	return ClientConfig{
		APIBaseURL:     strings.TrimRight(fallback(os.Getenv("CONSOLE_API_URL"), "http://localhost:8080"), "/"),
		CacheBackend:   strings.ToLower(fallback(os.Getenv("CONSOLE_CACHE"), CacheFile)),
		CachePath:      strings.TrimSpace(os.Getenv("CONSOLE_CACHE_PATH")),
		RedisURL:       fallback(os.Getenv("CONSOLE_REDIS_URL"), "redis://localhost:6379/0"),
		CachePrefix:    fallback(os.Getenv("CONSOLE_CACHE_PREFIX"), "therapy-console:"),
		RequestTimeout: seconds(os.Getenv("CONSOLE_TIMEOUT_SECONDS"), 15*time.Second),
		AllowAnonymous: parseBool(os.Getenv("GUARD_ALLOW_ANONYMOUS"), false),
		LogLevel:       fallback(os.Getenv("LOG_LEVEL"), "warn"),
		LogFormat:      fallback(os.Getenv("LOG_FORMAT"), "text"),
	}
}

// Validate checks the cache backend and fills in the default cache path.
func (c *ClientConfig) Validate() error {
	switch c.CacheBackend {
	case CacheFile, CacheSQLite:
		if c.CachePath == "" {
			p, err := DefaultCachePath(c.CacheBackend)
			if err != nil {
				return err
			}
			c.CachePath = p
		}
	case CacheRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return errors.New("CONSOLE_REDIS_URL is required for the redis cache")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	if c.APIBaseURL == "" {
		return errors.New("CONSOLE_API_URL is required")
	}
	return nil
}

// DefaultCachePath returns ~/.therapy-console/cache.json or cache.db.
func DefaultCachePath(backend string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	name := "cache.json"
	if backend == CacheSQLite {
		name = "cache.db"
	}
	return filepath.Join(home, ".therapy-console", name), nil
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseBool(value string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return b
}

func minutes(value string, def time.Duration) time.Duration {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
		return time.Duration(n) * time.Minute
	}
	return def
}

func seconds(value string, def time.Duration) time.Duration {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
