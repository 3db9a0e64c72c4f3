package cache

import (
	"bytes"
	"container/list"
	"context"
	"sync"
	"time"
)

// LRUConfig configures an LRUCache.
type LRUConfig struct {
	// MaxSize bounds the number of entries.
	// Default: 1000
	MaxSize int

	// TTL is the lifetime of every entry.
	// Default: DefaultTTL
	TTL time.Duration

	// SweepInterval is how often StartSweeper purges expired entries.
	// Zero disables the sweeper.
	SweepInterval time.Duration
}

// LRUCache is a bounded in-process cache with least-recently-used eviction
// and lazy expiry.
type LRUCache struct {
	config LRUConfig
	now    func() time.Time

	mu    sync.Mutex
	order *list.List // front = most recently used
	index map[string]*list.Element
	stats Stats

	stopSweep context.CancelFunc
}

type lruEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// Stats contains LRU cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
}

// NewLRUCache creates a new LRU cache.
func NewLRUCache(config LRUConfig) *LRUCache {
	if config.MaxSize <= 0 {
		config.MaxSize = 1000
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}

	return &LRUCache{
		config: config,
		now:    time.Now,
		order:  list.New(),
		index:  make(map[string]*list.Element),
	}
}

// Get returns a copy of the value for key and marks it most recently used.
// Expired entries are removed and reported as a miss.
func (c *LRUCache) Get(_ context.Context, key string) ([]byte, bool) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	e := el.Value.(*lruEntry)
	if now.After(e.expiresAt) {
		c.removeLocked(el)
		c.stats.Expirations++
		c.stats.Misses++
		return nil, false
	}

	c.order.MoveToFront(el)
	c.stats.Hits++
	return bytes.Clone(e.value), true
}

// Set stores a copy of value under key. Inserting a new key into a full cache evicts
// the least recently used entry first; overwriting never evicts.
func (c *LRUCache) Set(_ context.Context, key string, value []byte) error {
	expiresAt := c.now().Add(c.config.TTL)
	value = bytes.Clone(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		e := el.Value.(*lruEntry)
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return nil
	}

	if c.order.Len() >= c.config.MaxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.removeLocked(oldest)
			c.stats.Evictions++
		}
	}

	c.index[key] = c.order.PushFront(&lruEntry{key: key, value: value, expiresAt: expiresAt})
	return nil
}

// Clear drops all entries, zeroes the counters and stops the sweeper.
func (c *LRUCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.index = make(map[string]*list.Element)
	c.stats = Stats{}
	if c.stopSweep != nil {
		c.stopSweep()
		c.stopSweep = nil
	}
	return nil
}

// Entries purges expired entries and returns the live ones, most recently
// used first.
func (c *LRUCache) Entries() []Entry {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeLocked(now)
	out := make([]Entry, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*lruEntry)
		out = append(out, Entry{Key: e.key, Value: bytes.Clone(e.value)})
	}
	return out
}

// Len returns the number of stored entries, including expired ones not yet
// purged.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *LRUCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Purge removes expired entries and returns how many were removed.
func (c *LRUCache) Purge() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked(now)
}

// StartSweeper purges expired entries every SweepInterval until ctx ends or
// Clear is called. It is a no-op when SweepInterval is zero.
func (c *LRUCache) StartSweeper(ctx context.Context) {
	if c.config.SweepInterval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.stopSweep != nil {
		c.stopSweep()
	}
	c.stopSweep = cancel
	c.mu.Unlock()

	t := time.NewTicker(c.config.SweepInterval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Purge()
			}
		}
	}()
}

func (c *LRUCache) purgeLocked(now time.Time) int {
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*lruEntry).expiresAt) {
			c.removeLocked(el)
			c.stats.Expirations++
			removed++
		}
		el = prev
	}
	return removed
}

func (c *LRUCache) removeLocked(el *list.Element) {
	c.order.Remove(el)
	delete(c.index, el.Value.(*lruEntry).key)
}

var _ Cache = (*LRUCache)(nil)
