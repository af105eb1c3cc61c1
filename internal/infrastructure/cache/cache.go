// Package cache provides the prediction result cache backends.
package cache

import (
	"fmt"
	"io"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// Store is a CacheRepository that holds resources until closed
type Store interface {
	domain.CacheRepository
	io.Closer
}

// Config selects and configures a backend
type Config struct {
	Type            string // "memory" or "redis"
	RedisURL        string
	RedisPoolSize   int
	Prefix          string
	CleanupInterval time.Duration
}

// New builds the configured backend.
func New(cfg Config) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryCache(cfg.CleanupInterval), nil
	case "redis":
		return NewRedisCache(RedisConfig{URL: cfg.RedisURL, PoolSize: cfg.RedisPoolSize, Prefix: cfg.Prefix})
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}
