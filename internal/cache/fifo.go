package cache

import (
	"container/list"
	"sync"
	"time"
)

// fifoEntry represents a cached item with its insertion time
type fifoEntry struct {
	key        string
	data       []byte
	insertedAt time.Time
}

// FIFOCache is a bounded in-memory cache with TTL support.
// When the capacity is exceeded, the oldest-inserted entry is evicted,
// irrespective of access recency. Expired entries are treated as absent
// and removed lazily at read time; there is no background sweep.
type FIFOCache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // front = oldest inserted
	capacity int
	ttl      time.Duration
}

// NewFIFOCache creates a new in-memory FIFO cache
func NewFIFOCache(capacity int, ttl time.Duration) *FIFOCache {
	return &FIFOCache{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
	}
}

// Get retrieves a value from the cache
func (fc *FIFOCache) Get(key string) ([]byte, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	elem, ok := fc.entries[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*fifoEntry)
	if time.Since(entry.insertedAt) > fc.ttl {
		fc.order.Remove(elem)
		delete(fc.entries, key)
		return nil, false
	}

	return entry.data, true
}

// Set stores a value in the cache. Re-setting an existing key counts as a
// brand-new insertion: the entry moves to the back of the eviction order.
// If the insert pushes the cache over capacity, the single oldest entry
// is evicted.
func (fc *FIFOCache) Set(key string, value []byte) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if elem, ok := fc.entries[key]; ok {
		fc.order.Remove(elem)
		delete(fc.entries, key)
	}

	fc.entries[key] = fc.order.PushBack(&fifoEntry{
		key:        key,
		data:       value,
		insertedAt: time.Now(),
	})

	if fc.capacity > 0 && fc.order.Len() > fc.capacity {
		oldest := fc.order.Front()
		fc.order.Remove(oldest)
		delete(fc.entries, oldest.Value.(*fifoEntry).key)
	}
}

// Len returns the number of entries currently held, including entries
// that have expired but not yet been removed by a read
func (fc *FIFOCache) Len() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.order.Len()
}

// Clear removes all entries
func (fc *FIFOCache) Clear() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.entries = make(map[string]*list.Element)
	fc.order.Init()
}

// Close releases resources held by the cache
func (fc *FIFOCache) Close() {
	fc.Clear()
}

// NoopCache is a cache that does nothing (used when caching is disabled)
type NoopCache struct{}

// NewNoopCache creates a new no-op cache
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

// Get always returns not found
func (nc *NoopCache) Get(key string) ([]byte, bool) {
	return nil, false
}

// Set does nothing
func (nc *NoopCache) Set(key string, value []byte) {}

// Len always returns zero
func (nc *NoopCache) Len() int { return 0 }

// Clear does nothing
func (nc *NoopCache) Clear() {}

// Close does nothing
func (nc *NoopCache) Close() {}
