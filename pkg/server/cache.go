package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stonefinder_cache_hits_total",
		Help: "The total number of response cache hits",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stonefinder_cache_misses_total",
		Help: "The total number of response cache misses",
	})
)

const maxLocalEntries = 4096

type localEntry struct {
	Expires time.Time
	Data    []byte
}

// Cache is a response cache with a local map in front of an optional redis
// backend. Without redis every node keeps its own map, with redis the nodes
// share entries and the local map acts as a short first level. A nil *Cache
// is valid and never hits.
type Cache struct {
	mu       sync.RWMutex
	client   *redis.Client
	memCache map[string]localEntry
}

// NewCache returns a cache backed by redis when addr is set and a purely
// local one when it is empty.
func NewCache(addr, password string, db int) *Cache {
	c := &Cache{memCache: make(map[string]localEntry)}
	if addr != "" {
		c.client = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		})
	}
	return c
}

// localTtl caps local entries at a minute when redis is behind them, so a
// key overwritten by another node converges within that window.
func (c *Cache) localTtl(expiration time.Duration) time.Duration {
	if c.client != nil && expiration > time.Minute {
		return time.Minute
	}
	return expiration
}

func (c *Cache) GetRaw(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	local, found := c.memCache[key]
	c.mu.RUnlock()
	if found {
		if time.Now().Before(local.Expires) {
			cacheHits.Inc()
			return local.Data, true
		}
		c.mu.Lock()
		delete(c.memCache, key)
		c.mu.Unlock()
	}
	if c.client == nil {
		cacheMisses.Inc()
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		cacheMisses.Inc()
		return nil, false
	}
	c.mu.Lock()
	c.memCache[key] = localEntry{Expires: time.Now().Add(c.localTtl(time.Minute)), Data: data}
	c.mu.Unlock()
	cacheHits.Inc()
	return data, true
}

func (c *Cache) SetRaw(ctx context.Context, key string, data []byte, expiration time.Duration) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	if len(c.memCache) >= maxLocalEntries {
		c.evictLocked()
	}
	c.memCache[key] = localEntry{Expires: time.Now().Add(c.localTtl(expiration)), Data: data}
	c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, key, data, expiration).Err()
}

// evictLocked drops expired entries first and arbitrary ones after that
// until the map is back under the limit.
func (c *Cache) evictLocked() {
	now := time.Now()
	for key, entry := range c.memCache {
		if now.After(entry.Expires) {
			delete(c.memCache, key)
		}
	}
	for key := range c.memCache {
		if len(c.memCache) < maxLocalEntries {
			break
		}
		delete(c.memCache, key)
	}
}

func (c *Cache) Close() {
	if c == nil || c.client == nil {
		return
	}
	c.client.Close()
}

// CacheResult answers key from the cache or builds, stores and returns a
// fresh value. A failing store is logged, the caller still gets the value.
func CacheResult[V any](c *Cache, ctx context.Context, key string, expiration time.Duration, build func() (V, error)) (V, error) {
	var value V
	if data, ok := c.GetRaw(ctx, key); ok {
		if err := sonic.Unmarshal(data, &value); err == nil {
			return value, nil
		}
		log.Printf("Error decoding cached value for %s", key)
	}
	value, err := build()
	if err != nil {
		return value, err
	}
	data, err := sonic.Marshal(value)
	if err != nil {
		return value, err
	}
	if err := c.SetRaw(ctx, key, data, expiration); err != nil {
		log.Printf("Error caching value for %s: %v", key, err)
	}
	return value, nil
}
