package cache

import (
	"context"
	"time"
)

// Cache is the contract for the read-through cache layer used by the
// repositories. Implementations: Redis (production), none (tests, seed).
type Cache interface {
	// Get looks key up and unmarshals the stored value into dest.
	// found=false means cache miss; dest is left untouched.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores value under key with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes keys from the cache.
	Delete(ctx context.Context, keys ...string) error

	// Ping verifies the backing connection.
	Ping(ctx context.Context) error
}
