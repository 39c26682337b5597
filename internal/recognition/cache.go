package recognition

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/facegate/facegate/internal/tenant"
)

// MemberLister is the slice of the persistent store the cache needs: the
// matchable roster for one tenant.
type MemberLister interface {
	ListWithEmbeddings(ctx context.Context, scope tenant.Scope) ([]Member, error)
}

// EmbeddingCache holds one immutable roster snapshot per tenant so repeated
// matches avoid a storage round trip. Entries are refreshed on demand and
// invalidated after enrollment changes; there is no time-based expiry.
type EmbeddingCache struct {
	store MemberLister
	now   func() time.Time

	mu      sync.RWMutex
	entries map[string]*CacheEntry
}

// NewEmbeddingCache creates an empty cache backed by the given store.
func NewEmbeddingCache(store MemberLister) *EmbeddingCache {
	return &EmbeddingCache{
		store:   store,
		now:     time.Now,
		entries: make(map[string]*CacheEntry),
	}
}

// SetClock overrides the time source. For tests.
func (c *EmbeddingCache) SetClock(now func() time.Time) {
	c.now = now
}

// Refresh fetches the tenant's roster and replaces any existing entry
// wholesale. A store failure leaves the previous entry (if any) in place
// so matching can degrade instead of going dark.
func (c *EmbeddingCache) Refresh(ctx context.Context, scope tenant.Scope) (*CacheEntry, error) {
	members, err := c.store.ListWithEmbeddings(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("refreshing roster for %s: %w", scope, err)
	}

	entry := &CacheEntry{
		ScopeKey:  scope.Key(),
		Members:   members,
		FetchedAt: c.now(),
	}

	c.mu.Lock()
	c.entries[scope.Key()] = entry
	c.mu.Unlock()

	return entry, nil
}

// Get returns the current snapshot without fetching.
func (c *EmbeddingCache) Get(scope tenant.Scope) (*CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[scope.Key()]
	return entry, ok
}

// GetOrRefresh returns the current snapshot, fetching it first on a miss.
func (c *EmbeddingCache) GetOrRefresh(ctx context.Context, scope tenant.Scope) (*CacheEntry, error) {
	if entry, ok := c.Get(scope); ok {
		return entry, nil
	}
	return c.Refresh(ctx, scope)
}

// Invalidate drops the cached entry for the scope, forcing the next
// GetOrRefresh to fetch. Called after enrollment, update or delete.
func (c *EmbeddingCache) Invalidate(scope tenant.Scope) {
	c.mu.Lock()
	delete(c.entries, scope.Key())
	c.mu.Unlock()
}

// InvalidateAll drops every cached entry.
func (c *EmbeddingCache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]*CacheEntry)
	c.mu.Unlock()
}

// Stats reports count and age for the scope's entry. Observability only.
func (c *EmbeddingCache) Stats(scope tenant.Scope) (CacheStats, bool) {
	c.mu.RLock()
	entry, ok := c.entries[scope.Key()]
	c.mu.RUnlock()
	if !ok {
		return CacheStats{}, false
	}
	return CacheStats{
		ScopeKey:  entry.ScopeKey,
		Count:     len(entry.Members),
		FetchedAt: entry.FetchedAt,
		AgeSecs:   c.now().Sub(entry.FetchedAt).Seconds(),
	}, true
}

// AllStats reports stats for every cached scope.
func (c *EmbeddingCache) AllStats() []CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := make([]CacheStats, 0, len(c.entries))
	for _, entry := range c.entries {
		stats = append(stats, CacheStats{
			ScopeKey:  entry.ScopeKey,
			Count:     len(entry.Members),
			FetchedAt: entry.FetchedAt,
			AgeSecs:   c.now().Sub(entry.FetchedAt).Seconds(),
		})
	}
	return stats
}
