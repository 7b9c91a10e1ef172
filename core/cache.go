package core

import (
	"context"
	"time"
)

// Cache stores JSON-serialisable values. Implemented by storage/cache.
type Cache interface {
	// Get decodes the value stored at key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// SetNX sets key only if it does not exist yet and reports whether it did.
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

const (
	CacheKeyPlanPrefix        = "plan:"
	CacheKeyPublicationPrefix = "publication:"
	CacheKeyExpireLockPrefix  = "expire:"
)
