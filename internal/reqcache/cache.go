// Package reqcache memoizes mapped requests by query text.
//
// The cache keeps two generations of entries. Lookups read both without
// locking; a hit in the older generation promotes the entry. When the
// current generation is full or older than the eviction age, it becomes
// the older one and the previous older generation is dropped.
package reqcache

import (
	"sync"
	"sync/atomic"
	"time"
)

type entry[V any] struct {
	value V
	uses  atomic.Int64
}

type generation[V any] struct {
	entries sync.Map // string -> *entry[V]
	count   atomic.Int64
	created time.Time
}

// Cache is a bounded double-buffered cache safe for concurrent use.
type Cache[V any] struct {
	size     int
	evictAge time.Duration
	now      func() time.Time

	current  atomic.Pointer[generation[V]]
	previous atomic.Pointer[generation[V]]
	mu       sync.Mutex

	hits      atomic.Int64
	misses    atomic.Int64
	rotations atomic.Int64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Entries   int64
	Rotations int64
}

// New returns a cache holding up to size entries per generation. Entries
// not used for longer than roughly two eviction ages are dropped.
func New[V any](size int, evictAge time.Duration) *Cache[V] {
	if size <= 0 {
		size = 1
	}
	c := &Cache[V]{size: size, evictAge: evictAge, now: time.Now}
	c.current.Store(&generation[V]{created: c.now()})
	c.previous.Store(&generation[V]{created: c.now()})
	return c
}

// TryLookup returns the value cached for key.
func (c *Cache[V]) TryLookup(key string) (V, bool) {
	cur := c.current.Load()
	if e, ok := cur.entries.Load(key); ok {
		en := e.(*entry[V])
		en.uses.Add(1)
		c.hits.Add(1)
		c.maybeRotate(cur)
		return en.value, true
	}
	if e, ok := c.previous.Load().entries.Load(key); ok {
		en := e.(*entry[V])
		en.uses.Add(1)
		c.hits.Add(1)
		c.store(key, en)
		return en.value, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Add stores value under key in the current generation.
func (c *Cache[V]) Add(key string, value V) {
	c.store(key, &entry[V]{value: value})
}

// store puts en into the current generation. Promoted entries keep their
// use count.
func (c *Cache[V]) store(key string, en *entry[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.current.Load()
	if c.expired(cur) || cur.count.Load() >= int64(c.size) {
		cur = c.rotateLocked()
	}
	if _, loaded := cur.entries.LoadOrStore(key, en); !loaded {
		cur.count.Add(1)
	}
}

// Uses returns how many times key was served from the cache.
func (c *Cache[V]) Uses(key string) int64 {
	for _, g := range []*generation[V]{c.current.Load(), c.previous.Load()} {
		if e, ok := g.entries.Load(key); ok {
			return e.(*entry[V]).uses.Load()
		}
	}
	return 0
}

// Stats returns the current counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Entries:   c.current.Load().count.Load() + c.previous.Load().count.Load(),
		Rotations: c.rotations.Load(),
	}
}

func (c *Cache[V]) expired(g *generation[V]) bool {
	return c.evictAge > 0 && c.now().Sub(g.created) > c.evictAge
}

func (c *Cache[V]) maybeRotate(g *generation[V]) {
	if !c.expired(g) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current.Load() == g {
		c.rotateLocked()
	}
}

func (c *Cache[V]) rotateLocked() *generation[V] {
	next := &generation[V]{created: c.now()}
	c.previous.Store(c.current.Load())
	c.current.Store(next)
	c.rotations.Add(1)
	return next
}
