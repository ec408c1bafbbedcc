// Package dashcache provides the short-lived cache for expensive dashboard
// aggregates. Entries carry a TTL chosen by the caller (short for the
// still-accumulating current period, long for closed historical periods)
// and the store evicts by least-recent access once at capacity.
package dashcache

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultCapacity is the entry ceiling used when no capacity is configured.
const DefaultCapacity = 100

// Key identifies one cached dashboard computation.
type Key struct {
	Kind       string
	Database   string
	PeriodType string
	PeriodID   string
	Zones      []string
}

// String returns the canonical cache key. The zone set is sorted so that
// the same selection always maps to the same entry regardless of request
// ordering.
func (k Key) String() string {
	zones := make([]string, len(k.Zones))
	copy(zones, k.Zones)
	sort.Strings(zones)
	return strings.Join([]string{k.Kind, k.Database, k.PeriodType, k.PeriodID, strings.Join(zones, "+")}, "|")
}

type entry[T any] struct {
	value        T
	timestamp    time.Time // insertion time, kept for observability only
	expiresAt    time.Time
	lastAccessed time.Time
}

// Cache is a mutex-guarded TTL + LRU-by-access store. Eviction is keyed on
// last read time, not insertion time: a frequently-read old entry outlives
// a never-read newer one.
type Cache[T any] struct {
	mu       sync.Mutex
	entries  map[string]*entry[T]
	capacity int
	now      func() time.Time
}

// New creates a cache with the given capacity. Capacity values <= 0 fall
// back to DefaultCapacity.
func New[T any](capacity int) *Cache[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[T]{
		entries:  make(map[string]*entry[T]),
		capacity: capacity,
		now:      time.Now,
	}
}

// Get returns the cached value for key if present and unexpired. A hit past
// its expiry is treated as a miss and removed (lazy expiry).
func (c *Cache[T]) Get(key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	k := key.String()
	e, ok := c.entries[k]
	if !ok {
		return zero, false
	}

	now := c.now()
	if now.After(e.expiresAt) {
		delete(c.entries, k)
		return zero, false
	}

	e.lastAccessed = now
	return e.value, true
}

// Set stores value under key with the given TTL. Expired entries are swept
// first; if the store is still at capacity and the key is new, the single
// entry with the oldest lastAccessed is evicted.
func (c *Cache[T]) Set(key Key, value T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweepExpired(now)

	k := key.String()
	if _, exists := c.entries[k]; !exists && len(c.entries) >= c.capacity {
		c.evictLeastRecentlyAccessed()
	}

	c.entries[k] = &entry[T]{
		value:        value,
		timestamp:    now,
		expiresAt:    now.Add(ttl),
		lastAccessed: now,
	}
}

// Len returns the current entry count.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[T]) sweepExpired(now time.Time) {
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

func (c *Cache[T]) evictLeastRecentlyAccessed() {
	var oldestKey string
	var oldestTime time.Time

	for k, e := range c.entries {
		if oldestKey == "" || e.lastAccessed.Before(oldestTime) {
			oldestKey = k
			oldestTime = e.lastAccessed
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
