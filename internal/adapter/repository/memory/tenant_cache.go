// Package memory provides a process-local tenant cache for deployments without Redis.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/V4T54L/surveystack/internal/domain"
)

type cacheEntry struct {
	record    domain.TenantRecord
	expiresAt time.Time
}

// TenantCache is an in-memory, time-based domain.TenantCache.
type TenantCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewTenantCache returns an empty cache.
func NewTenantCache() *TenantCache {
	return &TenantCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *TenantCache) Get(ctx context.Context, hostname string) (*domain.TenantRecord, error) {
	c.mu.RLock()
	entry, found := c.entries[hostname]
	c.mu.RUnlock()

	if !found {
		return nil, domain.ErrCacheMiss
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		// Double-check in case another goroutine refreshed the entry.
		if e, ok := c.entries[hostname]; ok && !c.now().Before(e.expiresAt) {
			delete(c.entries, hostname)
		}
		c.mu.Unlock()
		return nil, domain.ErrCacheMiss
	}
	rec := entry.record
	return &rec, nil
}

func (c *TenantCache) Put(ctx context.Context, hostname string, record *domain.TenantRecord, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hostname] = cacheEntry{record: *record, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *TenantCache) Delete(ctx context.Context, hostname string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, hostname)
	return nil
}

// Prune drops expired entries and returns how many were removed.
func (c *TenantCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for host, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, host)
			n++
		}
	}
	return n
}

// StartJanitor prunes expired entries every interval until ctx is done.
func (c *TenantCache) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Prune()
		}
	}
}
