// Package statuscache mirrors the writer pipeline's L1Status into Redis so
// horizontally-scaled RPC front ends can serve klay_l1Status without a
// direct channel to the single writer process, using the teacher's
// go-redis/redis/v7 dependency.
package statuscache

import (
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v7"

	"github.com/btcrollup/csmnode/writer"
	"github.com/btcrollup/csmnode/xlog"
)

var cacheLogger = xlog.NewModuleLogger(xlog.StatusCache)

const statusKey = "csmnode:l1_status"

// Cache mirrors the single writer-owned L1Status into Redis. It is a pure
// cache: the pipeline's in-memory copy remains authoritative, this is only
// ever written by the pipeline and only ever read by everyone else.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(addr string, ttl time.Duration) *Cache {
	return &Cache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

// Set mirrors status into Redis. Failures are logged, never fatal: the
// pipeline's own in-memory L1Status remains the source of truth.
func (c *Cache) Set(status writer.L1Status) {
	data, err := json.Marshal(status)
	if err != nil {
		cacheLogger.Error("failed to encode l1 status", "err", err)
		return
	}
	if err := c.client.Set(statusKey, data, c.ttl).Err(); err != nil {
		cacheLogger.Warn("failed to mirror l1 status to redis", "err", err)
	}
}

// Get reads the last mirrored L1Status, returning ok=false on a cache miss
// or decode error (stale readers fall back to a direct RPC call).
func (c *Cache) Get() (writer.L1Status, bool) {
	data, err := c.client.Get(statusKey).Bytes()
	if err != nil {
		return writer.L1Status{}, false
	}
	var status writer.L1Status
	if err := json.Unmarshal(data, &status); err != nil {
		return writer.L1Status{}, false
	}
	return status, true
}

func (c *Cache) Close() error { return c.client.Close() }
