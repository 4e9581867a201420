package style

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/observability"
)

const DefaultCacheSize = 200_000

// Key identifies one record of one layer. Record is the index in the
// layer payload, stable for the layer's lifetime.
type Key struct {
	Layer  int64
	Record int
}

// Cache memoizes resolved styles per record. Entries for a layer are only
// served while the layer's dependency fingerprint is unchanged.
type Cache struct {
	mu   sync.Mutex
	lru  *lru.Cache[Key, Resolved]
	deps map[int64]uint64
}

func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	l, err := lru.New[Key, Resolved](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l, deps: make(map[int64]uint64)}, nil
}

// Sync records the layer's current dependencies. When they differ from the
// last synced set, every entry of the layer is dropped and Sync reports true.
func (c *Cache) Sync(layerID int64, d Dependencies) bool {
	fp := d.Fingerprint()
	c.mu.Lock()
	prev, known := c.deps[layerID]
	c.deps[layerID] = fp
	c.mu.Unlock()
	if known && prev == fp {
		return false
	}
	c.Invalidate(layerID)
	return known
}

// Invalidate drops all memoized styles of a layer and returns how many
// entries were removed.
func (c *Cache) Invalidate(layerID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.lru.Keys() {
		if k.Layer == layerID {
			c.lru.Remove(k)
			n++
		}
	}
	observability.AddStyleInvalidations(n)
	return n
}

// Forget invalidates a layer and drops its fingerprint, used when the
// layer is removed.
func (c *Cache) Forget(layerID int64) {
	c.Invalidate(layerID)
	c.mu.Lock()
	delete(c.deps, layerID)
	c.mu.Unlock()
}

func (c *Cache) Get(k Key) (Resolved, bool) {
	r, ok := c.lru.Get(k)
	observability.ObserveStyleCache(ok)
	return r, ok
}

func (c *Cache) Put(k Key, r Resolved) { c.lru.Add(k, r) }

// Resolve returns the memoized style for k, computing it with fn on a miss.
func (c *Cache) Resolve(k Key, fn func() Resolved) Resolved {
	if r, ok := c.Get(k); ok {
		return r
	}
	r := fn()
	c.Put(k, r)
	return r
}

func (c *Cache) Len() int { return c.lru.Len() }
