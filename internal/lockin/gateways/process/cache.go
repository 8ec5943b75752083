package process

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// matchCache remembers, per lowercased process name, which rule matched it
// ("" for none). The process table is scanned every cycle and mostly holds
// the same names, so the substring scan over all rules runs once per name.
type matchCache interface {
	Get(name string) (string, bool)
	Put(name, rule string)
	Len() int
	Purge()
	Stats() (hits, misses, evictions uint64)
}

type lruMatchCache struct {
	lru       *lru.Cache[string, string]
	hits      uint64
	misses    uint64
	evictions uint64
}

type disabledCache struct{}

// newMatchCache returns an LRU cache of the given size, or a disabled cache
// that always misses when size <= 0.
func newMatchCache(size int) (matchCache, error) {
	if size <= 0 {
		return disabledCache{}, nil
	}
	var c lruMatchCache
	cache, err := lru.NewWithEvict(size, func(string, string) {
		atomic.AddUint64(&c.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	c.lru = cache
	return &c, nil
}

func (c *lruMatchCache) Get(name string) (string, bool) {
	if v, ok := c.lru.Get(name); ok {
		atomic.AddUint64(&c.hits, 1)
		return v, true
	}
	atomic.AddUint64(&c.misses, 1)
	return "", false
}

func (c *lruMatchCache) Put(name, rule string) { c.lru.Add(name, rule) }

func (c *lruMatchCache) Len() int { return c.lru.Len() }

func (c *lruMatchCache) Purge() { c.lru.Purge() }

func (c *lruMatchCache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.evictions)
}

func (disabledCache) Get(string) (string, bool)       { return "", false }
func (disabledCache) Put(string, string)              {}
func (disabledCache) Len() int                        { return 0 }
func (disabledCache) Purge()                          {}
func (disabledCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }
