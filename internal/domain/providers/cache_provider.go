package providers

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// CacheProvider defines the interface for caching operations
type CacheProvider interface {
	// Get retrieves a value from cache, returning ErrCacheMiss when absent
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes values from cache
	Delete(ctx context.Context, keys ...string) error

	// Exists checks if a key exists in cache
	Exists(ctx context.Context, key string) (bool, error)
}

// PatternDeleter removes every key matching a glob pattern. Optional; the
// HTTP response cache is invalidated through it when available.
type PatternDeleter interface {
	DeletePattern(ctx context.Context, pattern string) error
}

const (
	// SessionCacheKeyPrefix prefixes cached session snapshots
	SessionCacheKeyPrefix = "assessment:cache:session:"

	// HTTPCacheKeyPrefix prefixes cached HTTP responses
	HTTPCacheKeyPrefix = "http:cache:"
)

// SessionCacheKey returns the cache key of a session snapshot
func SessionCacheKey(sessionID string) string {
	return SessionCacheKeyPrefix + sessionID
}

// SessionHTTPCachePattern matches every cached HTTP response about a session
func SessionHTTPCachePattern(sessionID string) string {
	return HTTPCacheKeyPrefix + "*sessions/" + sessionID + "*"
}
