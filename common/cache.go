// Package common holds small cross-cutting helpers shared by csm and
// writer, adapted from the teacher's common/cache.go LRU wrapper around
// hashicorp/golang-lru.
package common

import lru "github.com/hashicorp/golang-lru"

// Cache is a fixed-size, thread-safe cache of arbitrary keys to values.
// Its one consumer is the CSM read view (csm/view.go), which caches L1
// manifest lookups in front of its KV reads. The teacher's ARC and
// sharded-LRU variants are dropped here: nothing in this node's hot path
// needs scan-resistance (ARC) or lock-sharding across millions of keys
// (LRUShardCache) — a plain bounded LRU covers the L1 manifest lookup
// pattern.
type Cache struct {
	lru *lru.Cache
}

// NewCache returns a Cache holding at most size entries, evicting least
// recently used ones once full.
func NewCache(size int) *Cache {
	c, err := lru.New(size)
	if err != nil {
		// lru.New only fails for size <= 0, a caller bug we surface as a
		// panic rather than threading an error through every call site
		// that just wants a cache.
		panic(err)
	}
	return &Cache{lru: c}
}

func (c *Cache) Add(key, value interface{}) { c.lru.Add(key, value) }

func (c *Cache) Get(key interface{}) (interface{}, bool) { return c.lru.Get(key) }

func (c *Cache) Remove(key interface{}) { c.lru.Remove(key) }

func (c *Cache) Purge() { c.lru.Purge() }

func (c *Cache) Len() int { return c.lru.Len() }
