package cache

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// CacheConfig holds configuration for the caching layer.
type CacheConfig struct {
	// Enabled controls whether caching is active. When false, no middleware
	// is applied and all requests pass through uncached.
	Enabled bool

	// ReadTTL is the TTL for cached read endpoints (golden, history).
	ReadTTL time.Duration

	// MaxSize is the maximum number of entries in the cache.
	MaxSize int
}

// DefaultCacheConfig returns a CacheConfig with sensible defaults.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Enabled: true,
		ReadTTL: 30 * time.Second,
		MaxSize: 1000,
	}
}

// CacheConfigFromEnv reads cache configuration from environment variables,
// falling back to defaults for any unset variable.
//
// Environment variables:
//   - REGISTRY_CACHE_ENABLED: "true" or "false" (default: "true")
//   - REGISTRY_CACHE_READ_TTL: duration in seconds (default: 30)
//   - REGISTRY_CACHE_MAX_SIZE: max entries (default: 1000)
func CacheConfigFromEnv() *CacheConfig {
	cfg := DefaultCacheConfig()

	if v := os.Getenv("REGISTRY_CACHE_ENABLED"); v != "" {
		cfg.Enabled = strings.EqualFold(v, "true") || v == "1"
	}

	if v := os.Getenv("REGISTRY_CACHE_READ_TTL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.ReadTTL = time.Duration(secs) * time.Second
		}
	}

	if v := os.Getenv("REGISTRY_CACHE_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSize = n
		}
	}

	return cfg
}
