package application

import (
	"sync"
	"time"

	"github.com/example/coaching-scheduler/internal/scheduler"
)

// gridCache stores recently assembled week grids so repeated timetable reads
// skip the database while bookings remain unchanged. Every booking write
// invalidates the whole cache and bumps its generation; a grid read under an
// older generation is never stored. A nil *gridCache caches nothing.
type gridCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	generation uint64
	entries    map[string]gridCacheEntry
}

type gridCacheEntry struct {
	grid      scheduler.WeekGrid
	expiresAt time.Time
}

// newGridCache returns nil, a disabled cache, when ttl is not positive.
func newGridCache(ttl time.Duration, maxEntries int, now func() time.Time) *gridCache {
	if ttl <= 0 {
		return nil
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &gridCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]gridCacheEntry),
	}
}

func (c *gridCache) Get(key string) (scheduler.WeekGrid, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneGrid(entry.grid), true
}

// Generation identifies the current cache contents. Read it before loading
// the bookings a grid is assembled from and hand it to Store.
func (c *gridCache) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Store keeps grid under key unless the cache was invalidated after
// generation was read.
func (c *gridCache) Store(key string, grid scheduler.WeekGrid, generation uint64) bool {
	if c == nil {
		return false
	}
	cloned := cloneGrid(grid)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return false
	}
	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = gridCacheEntry{grid: cloned, expiresAt: expiry}
	return true
}

func (c *gridCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.generation++
	c.entries = make(map[string]gridCacheEntry)
	c.mu.Unlock()
}

func (c *gridCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *gridCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneGrid(grid scheduler.WeekGrid) scheduler.WeekGrid {
	if grid == nil {
		return nil
	}
	out := make(scheduler.WeekGrid, len(grid))
	for day, cells := range grid {
		copied := make(map[string][]scheduler.Booking, len(cells))
		for slot, bookings := range cells {
			copied[slot] = append([]scheduler.Booking{}, bookings...)
		}
		out[day] = copied
	}
	return out
}

func buildGridCacheKey(teacherID, classroomID string) string {
	return "teacher=" + teacherID + "|classroom=" + classroomID
}
