package style

import "sync"

// DefaultCacheCapacity bounds the number of distinct descriptors kept.
const DefaultCacheCapacity = 4096

// Cache memoizes Compile. It is safe for concurrent use. Once Capacity entries
// are stored, further distinct descriptors are compiled on every call and not
// stored, which bounds memory for inputs with unusual style diversity.
type Cache struct {
	mu       sync.RWMutex
	entries  map[Descriptor]string
	capacity int
}

// NewCache creates a cache holding at most capacity entries. A non-positive
// capacity selects DefaultCacheCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		entries:  make(map[Descriptor]string, 64),
		capacity: capacity,
	}
}

// Escape returns the escape sequence for d.
func (c *Cache) Escape(d Descriptor) string {
	if c == nil {
		return Compile(d)
	}

	c.mu.RLock()
	seq, ok := c.entries[d]
	c.mu.RUnlock()
	if ok {
		return seq
	}

	seq = Compile(d)

	c.mu.Lock()
	if len(c.entries) < c.capacity {
		c.entries[d] = seq
	}
	c.mu.Unlock()
	return seq
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Capacity returns the maximum number of stored entries.
func (c *Cache) Capacity() int {
	if c == nil {
		return 0
	}
	return c.capacity
}
