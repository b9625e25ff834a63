package cache

import (
	"time"

	"github.com/ppiankov/wikigap/internal/model"
)

// LayeredCache reads memory first, then disk, and promotes disk hits
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache builds a two-level cache
func NewLayeredCache(memory, disk Cache) *LayeredCache {
	return &LayeredCache{memory: memory, disk: disk}
}

// FromConfig returns the configured cache, or Nop when caching is disabled
func FromConfig(cfg model.CacheConfig, dir string) Cache {
	if !cfg.Enabled {
		return Nop{}
	}
	return NewLayeredCache(NewMemoryCache(cfg.MemoryTTL), NewDiskCache(dir, cfg.DiskTTL))
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if v, ok := c.memory.Get(key); ok {
		return v, true
	}
	v, ok := c.disk.Get(key)
	if !ok {
		return nil, false
	}
	_ = c.memory.Set(key, v, 0)
	return v, true
}

func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, value, ttl)
}

func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}
