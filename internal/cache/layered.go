package cache

import "time"

// LayeredCache puts a fast in-process layer in front of a durable one
type LayeredCache struct {
	memory  Cache
	durable Cache
}

// NewLayeredCache creates a layered cache over any durable backend
func NewLayeredCache(memoryTTL time.Duration, durable Cache) *LayeredCache {
	return &LayeredCache{
		memory:  NewMemoryCache(memoryTTL, 10*time.Minute),
		durable: durable,
	}
}

// Get checks memory first, then the durable layer
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}

	if val, found := c.durable.Get(key); found {
		// Promote to memory
		_ = c.memory.Set(key, val, 0)
		return val, true
	}

	return nil, false
}

// Set stores a value in both layers
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.durable.Set(key, value, ttl); err != nil {
		return err
	}
	return c.memory.Set(key, value, ttl)
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.durable.Delete(key)
}

// Clear removes all values from both layers
func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.durable.Clear()
}
