package dataset

import (
	"container/list"
	"fmt"
	"sync"
)

// Cache keeps decoded samples in memory across epochs with LRU eviction.
// One Cache may be shared by the train and validation pipelines.
type Cache struct {
	mu      sync.Mutex
	items   map[string][]float32
	lru     *list.List
	lruMap  map[string]*list.Element
	maxSize int

	hits   int64
	misses int64
}

// NewCache creates a cache holding at most maxSize decoded samples.
func NewCache(maxSize int) *Cache {
	return &Cache{
		items:   make(map[string][]float32),
		lru:     list.New(),
		lruMap:  make(map[string]*list.Element),
		maxSize: maxSize,
	}
}

// Get retrieves a decoded sample.
func (c *Cache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if data, exists := c.items[key]; exists {
		if elem, ok := c.lruMap[key]; ok {
			c.lru.MoveToFront(elem)
		}
		c.hits++
		return data, true
	}
	c.misses++
	return nil, false
}

// Put stores a decoded sample, evicting the least recently used entries
// when full.
func (c *Cache) Put(key string, data []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; exists {
		if elem, ok := c.lruMap[key]; ok {
			c.lru.MoveToFront(elem)
		}
		return
	}

	elem := c.lru.PushFront(key)
	c.lruMap[key] = elem
	c.items[key] = data

	for len(c.items) > c.maxSize && c.lru.Len() > 0 {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		k := oldest.Value.(string)
		c.lru.Remove(oldest)
		delete(c.lruMap, k)
		delete(c.items, k)
	}
}

// Clear drops all entries. Statistics stay cumulative.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string][]float32)
	c.lru = list.New()
	c.lruMap = make(map[string]*list.Element)
}

// CacheStats holds cache effectiveness counters.
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    int64
	Misses  int64
}

// Stats returns current cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Size:    len(c.items),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
}

func (cs CacheStats) String() string {
	return fmt.Sprintf("cache: %d/%d items, hits: %d, misses: %d", cs.Size, cs.MaxSize, cs.Hits, cs.Misses)
}
