package dashcache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock hands out strictly increasing instants.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func key(i int) Key {
	return Key{Kind: "revenue", Database: "crm", PeriodType: "month", PeriodID: fmt.Sprintf("2025-%02d", i)}
}

func TestCache_GetSet(t *testing.T) {
	c := New[int](10)
	c.Set(key(1), 42, time.Hour)

	got, ok := c.Get(key(1))
	if !ok || got != 42 {
		t.Fatalf("Get() = %d, %v; want 42, true", got, ok)
	}

	if _, ok := c.Get(key(2)); ok {
		t.Error("Get() on absent key returned a hit")
	}
}

func TestCache_KeyCanonicalizesZoneOrder(t *testing.T) {
	c := New[string](10)
	c.Set(Key{Kind: "counts", Database: "crm", Zones: []string{"west", "east"}}, "v", time.Hour)

	if _, ok := c.Get(Key{Kind: "counts", Database: "crm", Zones: []string{"east", "west"}}); !ok {
		t.Error("zone order changed the cache key")
	}
}

func TestCache_LazyExpiry(t *testing.T) {
	clock := newFakeClock()
	c := New[int](10)
	c.now = clock.Now

	c.Set(key(1), 1, time.Hour)
	clock.Advance(2 * time.Hour)

	if _, ok := c.Get(key(1)); ok {
		t.Error("Get() returned an expired entry")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not removed on read, len = %d", c.Len())
	}
}

func TestCache_SetSweepsExpiredBeforeEvicting(t *testing.T) {
	clock := newFakeClock()
	c := New[int](2)
	c.now = clock.Now

	c.Set(key(1), 1, time.Minute)
	clock.Advance(time.Second)
	c.Set(key(2), 2, time.Hour)

	// key(1) expires; the next Set must reclaim its slot rather than
	// evicting the live key(2).
	clock.Advance(2 * time.Minute)
	c.Set(key(3), 3, time.Hour)

	if _, ok := c.Get(key(2)); !ok {
		t.Error("live entry was evicted even though an expired slot was reclaimable")
	}
	if _, ok := c.Get(key(3)); !ok {
		t.Error("newly inserted entry missing")
	}
}

func TestCache_EvictsByLastAccessNotInsertionTime(t *testing.T) {
	clock := newFakeClock()
	c := New[int](100)
	c.now = clock.Now

	// Fill to capacity; key(1) is the oldest by insertion.
	for i := 1; i <= 100; i++ {
		c.Set(key(i), i, 24*time.Hour)
		clock.Advance(time.Second)
	}

	// Touch the oldest-inserted entry right before overflowing. It now has
	// the newest lastAccessed and must survive; key(2) becomes the LRU.
	if _, ok := c.Get(key(1)); !ok {
		t.Fatal("warm-up read missed")
	}
	clock.Advance(time.Second)

	c.Set(key(101), 101, 24*time.Hour)

	if c.Len() != 100 {
		t.Fatalf("len = %d, want 100", c.Len())
	}
	if _, ok := c.Get(key(1)); !ok {
		t.Error("recently read entry was evicted; eviction must key on lastAccessed, not timestamp")
	}
	if _, ok := c.Get(key(2)); ok {
		t.Error("least recently accessed entry survived the 101st insert")
	}
	if _, ok := c.Get(key(101)); !ok {
		t.Error("101st entry missing after insert")
	}
}

func TestCache_OverwriteDoesNotEvict(t *testing.T) {
	clock := newFakeClock()
	c := New[int](2)
	c.now = clock.Now

	c.Set(key(1), 1, time.Hour)
	clock.Advance(time.Second)
	c.Set(key(2), 2, time.Hour)
	clock.Advance(time.Second)

	// Re-setting an existing key at capacity must not evict anything.
	c.Set(key(1), 10, time.Hour)

	if got, ok := c.Get(key(1)); !ok || got != 10 {
		t.Errorf("overwritten entry = %d, %v; want 10, true", got, ok)
	}
	if _, ok := c.Get(key(2)); !ok {
		t.Error("sibling entry evicted by an overwrite")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int](50)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Set(key(i%60), i, time.Hour)
				c.Get(key((i + g) % 60))
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("cache exceeded capacity under concurrency: %d", c.Len())
	}
}
