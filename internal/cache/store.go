// Package cache holds rendered pages for a bounded time window.
package cache

import (
	"context"
	"time"
)

// Store is a keyed byte cache with per-entry expiry.
type Store interface {
	// Get reports ok=false for missing or expired keys.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear drops every entry owned by this store.
	Clear(ctx context.Context) error
}
