package embedding

import (
	"container/list"
	"sync"
)

// FrameCache is an LRU of embeddings keyed by frame content key. It stores
// and returns copies, so callers may normalize or otherwise modify the
// vectors they get back.
type FrameCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List
	hits     uint64
	misses   uint64
}

type frameEntry struct {
	key string
	emb []float32
}

// NewFrameCache returns a cache holding up to capacity embeddings. A capacity
// of zero or less disables caching; lookups still count as misses.
func NewFrameCache(capacity int) *FrameCache {
	return &FrameCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns a copy of the embedding cached under key.
func (c *FrameCache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return append([]float32(nil), el.Value.(*frameEntry).emb...), true
}

// Put caches a copy of emb under key, evicting the least recently used entry
// when full.
func (c *FrameCache) Put(key string, emb []float32) {
	if c.capacity <= 0 {
		return
	}
	stored := append([]float32(nil), emb...)
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*frameEntry).emb = stored
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&frameEntry{key: key, emb: stored})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*frameEntry).key)
	}
}

// Len returns the number of cached embeddings.
func (c *FrameCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the hit and miss counts since creation.
func (c *FrameCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
