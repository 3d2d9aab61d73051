package authz

import (
	"net/http"
	"sync"
	"time"
)

// DefaultCacheTTL is the default time-to-live for cached role resolutions.
const DefaultCacheTTL = 10 * time.Second

// cacheEntry stores a resolved role with its expiration time.
type cacheEntry struct {
	role      Role
	expiresAt time.Time
}

// CachedRoleExtractor wraps another RoleExtractor with a short-lived
// in-memory cache keyed by the Authorization header, so repeated requests
// with the same bearer token skip signature verification.
type CachedRoleExtractor struct {
	inner RoleExtractor
	ttl   time.Duration
	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewCachedRoleExtractor creates a CachedRoleExtractor that wraps inner with
// the given TTL. A zero TTL uses DefaultCacheTTL.
func NewCachedRoleExtractor(inner RoleExtractor, ttl time.Duration) *CachedRoleExtractor {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedRoleExtractor{
		inner: inner,
		ttl:   ttl,
		cache: make(map[string]cacheEntry),
	}
}

// Extract checks the cache first and delegates to the inner extractor on
// miss. Requests without an Authorization header are never cached; their
// role depends on other headers that make a poor cache key.
func (c *CachedRoleExtractor) Extract(r *http.Request) Role {
	key := r.Header.Get("Authorization")
	if key == "" {
		return c.inner(r)
	}

	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.role
	}

	role := c.inner(r)

	c.mu.Lock()
	c.cache[key] = cacheEntry{
		role:      role,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()

	return role
}
