package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CatalogRepository gives read-only access to the loaded phone catalog
type CatalogRepository interface {
	All() []PhoneRecord
	ByBrand(brand string) []PhoneRecord
	Brands() []string
}
