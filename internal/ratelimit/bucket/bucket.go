// Package bucket provides sliding-window rate limit counters. The in-memory
// store is per-process and resets on restart, a best-effort guard rather
// than strict enforcement. The Redis store is for deployments with more
// than one instance.
package bucket

import (
	"context"
	"time"
)

// Result describes one rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// Store is a sliding-window counter keyed by an arbitrary string.
type Store interface {
	// Allow checks if one more event fits under limit within the rolling
	// window and, if so, records it.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
	// Reset clears the counter for a key.
	Reset(ctx context.Context, key string) error
}
