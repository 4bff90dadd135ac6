// Package cache provides the key/value stores used in front of upstream
// discount sources.
package cache

import (
	"context"
	"time"
)

// Store is a byte-valued cache with per-entry expiration.
// A miss is reported through the boolean and is never an error.
type Store interface {
	// Get returns the value stored under key if present and not expired.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key with absolute expiration now+ttl,
	// replacing any existing entry. A ttl <= 0 stores without expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// HealthCheck runs a lightweight self-test. It never panics.
	HealthCheck(ctx context.Context) bool

	// Stats returns a snapshot of the running counters.
	Stats() Stats
}

// Stats holds running cache counters.
type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Sets      uint64  `json:"sets"`
	Evictions uint64  `json:"evictions"`
	Entries   int     `json:"entries"` // -1 when the backend does not track it
	HitRate   float64 `json:"hitRate"`
}

// HitRate returns hits/(hits+misses), or 0 before any lookup.
func HitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
