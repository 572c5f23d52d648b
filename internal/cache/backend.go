// Package cache provides the pluggable cache backend used for resolved media,
// shortlink expansions, and live-stream metadata.
package cache

import (
	"context"
	"time"
)

// Backend defines the interface for cache implementations
type Backend interface {
	// Get retrieves a value from the cache
	// Returns (value, found, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value in the cache with the given TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache
	Delete(ctx context.Context, key string) error

	// Close closes the cache connection
	Close() error
}

// Config holds cache TTL configuration
type Config struct {
	ResolvedTTL     time.Duration // successful resolver results
	ResolvedFailTTL time.Duration // failed resolutions, short so retries happen
	ShortlinkTTL    time.Duration // expanded shortlink destinations
	StreamTTL       time.Duration // live-flag + thumbnail metadata
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		ResolvedTTL:     1 * time.Hour,
		ResolvedFailTTL: 2 * time.Minute, // short TTL lets transient failures retry
		ShortlinkTTL:    24 * time.Hour,  // destinations effectively never change
		StreamTTL:       30 * time.Second,
	}
}
