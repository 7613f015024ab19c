// Package balancecache is a per-process, read-through cache of computed
// GroupBalances keyed by group id. It is an accelerator over the
// balance engine, never the source of truth: correctness of balance reads
// never depends on a cache hit, only on invalidation happening synchronously
// with every write that can change a group's balances.
package balancecache

import (
	"sync"
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/google/uuid"
)

type entry struct {
	value     *domain.GroupBalances
	expiresAt time.Time
}

// Compute recomputes a group's balances on a cache miss or skip.
type Compute func(groupID uuid.UUID) (*domain.GroupBalances, error)

// Cache is a TTL map from group id to its last-computed GroupBalances.
type Cache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]entry
	ttl     time.Duration
}

// New constructs a Cache with the given TTL.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[uuid.UUID]entry),
		ttl:     ttl,
	}
}

// Get returns the cached value for groupID if present and unexpired.
func (c *Cache) Get(groupID uuid.UUID) (*domain.GroupBalances, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[groupID]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Put stores a freshly computed value, resetting its TTL.
func (c *Cache) Put(groupID uuid.UUID, value *domain.GroupBalances) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[groupID] = entry{value: value, expiresAt: time.Now().Add(c.ttl)}
}

// Invalidate removes groupID's entry, forcing the next GetOrCompute to
// recompute. Callers must invoke this synchronously from every mutation
// that can change a group's balances: expense create/update/delete,
// settlement transitions crossing into/out of confirmed, membership
// changes, and group currency updates.
func (c *Cache) Invalidate(groupID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, groupID)
}

// GetOrCompute returns the cached value unless skipCache is set or the
// entry is missing/expired, in which case it calls compute, stores, and
// returns the fresh result.
func (c *Cache) GetOrCompute(groupID uuid.UUID, skipCache bool, compute Compute) (*domain.GroupBalances, error) {
	if !skipCache {
		if v, ok := c.Get(groupID); ok {
			return v, nil
		}
	}
	v, err := compute(groupID)
	if err != nil {
		return nil, err
	}
	c.Put(groupID, v)
	return v, nil
}
