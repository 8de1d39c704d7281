// Package cache persists small pieces of console state (token, cached identity)
// across process restarts.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hongminglow/therapy-console/internal/config"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Well-known keys.
const (
	KeyToken      = "TOKEN"
	KeyUserInfo   = "USER_INFO"
	KeyIsLoggedIn = "IS_LOGGED_IN"
)

// Cache is a persistent key-value store with JSON-encoded values.
type Cache interface {
	// Get decodes the value stored under key into dst, or returns ErrMiss.
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, value any) error
	// Remove deletes keys; absent keys are not an error.
	Remove(ctx context.Context, keys ...string) error
	Close() error
}

// Open builds the cache backend selected in cfg.
func Open(ctx context.Context, cfg config.ClientConfig, logger *slog.Logger) (Cache, error) {
	logger = logger.With("component", "cache", "backend", cfg.CacheBackend)
	switch cfg.CacheBackend {
	case config.CacheFile:
		logger.Debug("open cache", "path", cfg.CachePath)
		return OpenFile(cfg.CachePath)
	case config.CacheSQLite:
		logger.Debug("open cache", "path", cfg.CachePath)
		return OpenSQLite(ctx, cfg.CachePath)
	case config.CacheRedis:
		logger.Debug("open cache", "url", cfg.RedisURL)
		return OpenRedis(ctx, cfg.RedisURL, cfg.CachePrefix)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
