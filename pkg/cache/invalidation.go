package cache

import "net/http"

// Manager owns the read-endpoint response cache and its invalidation. Cached
// entries are keyed by site and request URL, so the golden endpoint keys
// contain the asset id and the history endpoint keys the version id;
// invalidation matches on those substrings. A nil Manager is valid and
// disables caching.
type Manager struct {
	reads *LRUCache
}

// NewManager creates a Manager from the given configuration.
// If cfg is nil or disabled, it returns nil.
func NewManager(cfg *CacheConfig) *Manager {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return &Manager{reads: NewLRUCache(cfg.MaxSize, cfg.ReadTTL)}
}

// ReadMiddleware returns caching middleware for GET read endpoints. On a nil
// Manager it returns a pass-through.
func (m *Manager) ReadMiddleware() func(http.Handler) http.Handler {
	if m == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return CacheMiddleware(m.reads)
}

// InvalidateAsset drops cached reads whose URL names the asset, notably the
// golden endpoint.
func (m *Manager) InvalidateAsset(assetID string) {
	if m == nil || assetID == "" {
		return
	}
	m.reads.InvalidateMatching(assetID)
}

// InvalidateVersion drops cached reads whose URL names the version, notably
// the history endpoint.
func (m *Manager) InvalidateVersion(versionID string) {
	if m == nil || versionID == "" {
		return
	}
	m.reads.InvalidateMatching(versionID)
}

// InvalidateAll clears the read cache entirely.
func (m *Manager) InvalidateAll() {
	if m == nil {
		return
	}
	m.reads.InvalidateAll()
}
