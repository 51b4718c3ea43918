package cache

import (
	"context"
	"time"
)

// DefaultTTL bounds the staleness window of cached analytics results.
const DefaultTTL = time.Hour

// Store is the key/value contract the analytics engine caches behind.
// Get returns (nil, nil) on a miss; entries expire after their TTL;
// DeletePattern removes every key matching a Redis-style glob and reports
// how many were dropped.
//
// Caching is a performance optimization, never a correctness dependency:
// callers treat any Store error as a miss and fall through to computation.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}
