// Package cache is the cache-side transport adapter: it moves encoded
// payloads in and out of a byte store through one Codec instance. The
// adapter never inspects the bytes or the format that produced them.
package cache

import (
	"context"
	"time"
)

// Store is a minimal byte store with TTLs.
// Must be safe for concurrent use and must be byte-for-byte
// transparent: Get must return exactly the []byte previously passed to
// Set for the same key. Implementations must not prepend/append
// metadata, transcode, or otherwise mutate values - a re-encoded value
// would no longer decode under the codec that produced it.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// BatchStore is an optional fast path for multi-key operations
// (pipelined on redis). Stores that do not implement it are driven
// key-by-key.
type BatchStore interface {
	// GetMany returns hits only; absent keys are simply missing from
	// the result map.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)

	// SetMany stores all items with one TTL.
	SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error
}
