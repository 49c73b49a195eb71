package repository

import (
	"context"
	"time"
)

// StateStore holds short-lived throttle claims shared by every instance.
// Implementations: Redis (production) or in-memory (local dev / single instance).
type StateStore interface {
	// Acquire claims key for ttl and reports whether it was free.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Remaining reports how long key stays claimed, zero when it is free.
	Remaining(ctx context.Context, key string) (time.Duration, error)
	Release(ctx context.Context, key string) error
}
