// Package repository defines data access interfaces for PawNetwork.
package repository

import (
	"context"
	"time"
)

// =============================================================================
// Cache Interface
// =============================================================================

// Cache defines the interface for caching operations.
// The in-memory implementation lives in internal/cache/memory.
type Cache interface {
	// Get retrieves a value by key.
	// Returns ErrCacheMiss if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an optional TTL.
	// If ttl is 0, the value doesn't expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// DeleteMulti removes multiple values.
	DeleteMulti(ctx context.Context, keys ...string) error
}

// =============================================================================
// Common Cache Keys
// =============================================================================

// CacheKeys generates cache keys for common scenarios.
var CacheKeys = cacheKeys{}

type cacheKeys struct{}

// SiteByDomain returns a cache key for site metadata by domain.
func (cacheKeys) SiteByDomain(domain string) string {
	return "cache:site:domain:" + domain
}

// SiteByID returns a cache key for site metadata by site ID.
func (cacheKeys) SiteByID(siteID string) string {
	return "cache:site:id:" + siteID
}
