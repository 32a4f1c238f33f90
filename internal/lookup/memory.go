package lookup

import (
	"context"
	"maps"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	data     map[string]string
	storedAt time.Time
}

// MemoryOptions configures a MemoryCache.
type MemoryOptions struct {
	TTL        time.Duration
	MaxEntries int
	Clock      func() time.Time
	Observer   Observer
	// FetchTimeout bounds a shared fetch, which outlives the caller that
	// started it.
	FetchTimeout time.Duration
}

// DefaultFetchTimeout bounds a shared fetch when MemoryOptions leaves it unset.
const DefaultFetchTimeout = 10 * time.Second

// MemoryCache is a process-local Cache. Entries expire on read; Sweep (or Run)
// removes expired entries proactively and MaxEntries bounds the map.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	observer   Observer
	fetchLimit time.Duration
	group      singleflight.Group
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache builds a MemoryCache. Zero options fall back to DefaultTTL,
// 1024 entries and the wall clock.
func NewMemoryCache(opts MemoryOptions) *MemoryCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 1024
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	return &MemoryCache{
		entries:    make(map[string]entry),
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		now:        opts.Clock,
		observer:   opts.Observer,
		fetchLimit: opts.FetchTimeout,
	}
}

// GetOrFetch implements Cache. Concurrent misses on one key share a single
// fetch. The fetch is detached from the cancellation of the caller that
// started it; every caller still stops waiting when its own ctx ends.
func (c *MemoryCache) GetOrFetch(ctx context.Context, key string, fetch Fetcher) (map[string]string, error) {
	if data, ok := c.lookup(key); ok {
		observe(c.observer, key, true)
		return data, nil
	}
	observe(c.observer, key, false)

	resultCh := c.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchLimit)
		defer cancel()
		data, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if data == nil {
			data = map[string]string{}
		}
		c.store(key, data)
		return data, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultCh:
		if res.Err != nil {
			return nil, res.Err
		}
		return maps.Clone(res.Val.(map[string]string)), nil
	}
}

// Invalidate implements Cache.
func (c *MemoryCache) Invalidate(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix+keySep) {
			delete(c.entries, key)
		}
	}
	return nil
}

// Sweep removes expired entries and reports how many were dropped.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

// Run sweeps every interval until ctx is done.
func (c *MemoryCache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) lookup(key string) (map[string]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return maps.Clone(e.data), true
}

func (c *MemoryCache) store(key string, data map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		if c.sweepLocked(now) == 0 {
			c.evictOldestLocked()
		}
	}
	c.entries[key] = entry{data: data, storedAt: now}
}

func (c *MemoryCache) sweepLocked(now time.Time) int {
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *MemoryCache) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for key, e := range c.entries {
		if !found || e.storedAt.Before(oldestAt) {
			oldestKey, oldestAt, found = key, e.storedAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}
