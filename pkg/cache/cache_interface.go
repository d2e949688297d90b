package cache

import (
	"context"
	"time"
)

// Cache is the contract for client-side storage (cart snapshot, guest id, tokens).
// Implementations: Redis and in-process memory.
type Cache interface {
	// Get loads the value stored at key into dest.
	// Returns: (found bool, error)
	// - found = true: hit, dest has been populated
	// - found = false: miss, dest is untouched
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores value at key. ttl <= 0 keeps the key forever.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes the keys
	Delete(ctx context.Context, keys ...string) error

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error
}
