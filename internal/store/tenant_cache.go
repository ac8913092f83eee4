package store

import (
	"sync"
	"time"

	"github.com/IoFMT/Inception/internal/model"
)

// TenantCache is an in-memory TTL cache for tenant configs, kept in front of
// the tenant store on the per-request authorization path.
type TenantCache struct {
	mu      sync.RWMutex
	entries map[string]*tenantCacheEntry
	ttl     time.Duration
}

type tenantCacheEntry struct {
	cfg       model.TenantConfig
	expiresAt time.Time
}

// NewTenantCache creates a cache whose entries expire after ttl. Expired
// entries are swept in the background.
func NewTenantCache(ttl time.Duration) *TenantCache {
	c := &TenantCache{
		entries: make(map[string]*tenantCacheEntry),
		ttl:     ttl,
	}
	go c.cleanup()
	return c
}

// Get retrieves a cached tenant config.
func (c *TenantCache) Get(apiKey string) (model.TenantConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[apiKey]
	if !ok || time.Now().After(entry.expiresAt) {
		return model.TenantConfig{}, false
	}
	return entry.cfg, true
}

// Set stores a tenant config.
func (c *TenantCache) Set(cfg model.TenantConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cfg.APIKey] = &tenantCacheEntry{
		cfg:       cfg,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Delete evicts a tenant config, e.g. after the tenant is removed.
func (c *TenantCache) Delete(apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, apiKey)
}

func (c *TenantCache) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for key, entry := range c.entries {
			if now.After(entry.expiresAt) {
				delete(c.entries, key)
			}
		}
		c.mu.Unlock()
	}
}
