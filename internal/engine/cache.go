package engine

import (
	"container/list"

	"github.com/kilupskalvis/seqarc/internal/models"
)

// DefaultCacheBlocks is the LRU capacity used when Options.CacheBlocks is zero.
const DefaultCacheBlocks = 256

// blockCache holds decoded blocks with least-recently-used eviction.
// It is not safe for concurrent use; it belongs to a single Decompressor.
type blockCache struct {
	cap int
	ll  *list.List
	m   map[models.BlockKey]*list.Element
}

type cacheEntry struct {
	key  models.BlockKey
	data []byte
}

func newBlockCache(capacity int) *blockCache {
	if capacity <= 0 {
		capacity = DefaultCacheBlocks
	}
	return &blockCache{cap: capacity, ll: list.New(), m: make(map[models.BlockKey]*list.Element)}
}

func (c *blockCache) get(k models.BlockKey) ([]byte, bool) {
	e, ok := c.m[k]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(e)
	return e.Value.(*cacheEntry).data, true
}

func (c *blockCache) put(k models.BlockKey, data []byte) {
	if e, ok := c.m[k]; ok {
		e.Value.(*cacheEntry).data = data
		c.ll.MoveToFront(e)
		return
	}
	c.m[k] = c.ll.PushFront(&cacheEntry{key: k, data: data})
	for c.ll.Len() > c.cap {
		tail := c.ll.Back()
		c.ll.Remove(tail)
		delete(c.m, tail.Value.(*cacheEntry).key)
	}
}

// grow raises the capacity; used by prefetch so that every block stays resident.
func (c *blockCache) grow(capacity int) {
	if capacity > c.cap {
		c.cap = capacity
	}
}

func (c *blockCache) len() int {
	return c.ll.Len()
}

func (c *blockCache) reset() {
	c.ll.Init()
	clear(c.m)
}
