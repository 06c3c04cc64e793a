package services

import "sync"

// VersionCache remembers the last version tag downloaded for each object.
type VersionCache interface {
	Get(key string) (string, bool)
	Set(key, tag string)
}

// MemoryVersionCache is a process-local VersionCache.
type MemoryVersionCache struct {
	mu   sync.RWMutex
	tags map[string]string
}

func NewMemoryVersionCache() *MemoryVersionCache {
	return &MemoryVersionCache{tags: make(map[string]string)}
}

func (c *MemoryVersionCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tag, ok := c.tags[key]
	return tag, ok
}

func (c *MemoryVersionCache) Set(key, tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tags[key] = tag
}

// Snapshot copies the current key -> tag map.
func (c *MemoryVersionCache) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.tags))
	for k, v := range c.tags {
		out[k] = v
	}
	return out
}
