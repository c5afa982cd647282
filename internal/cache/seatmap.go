// Package cache provides the seat-map read cache.  The cache is a rendering
// optimization only: Reserve, Confirm and Expire invalidate it
// unconditionally and never read through it.  Failures are soft – a cache
// that errors behaves like a cache that misses.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SeatMapCache stores rendered seat-map documents keyed per showtime.
type SeatMapCache interface {
	// Get returns the cached document and whether it was present.
	Get(ctx context.Context, showtimeID uuid.UUID) ([]byte, bool)
	// Set stores the document for the given TTL.
	Set(ctx context.Context, showtimeID uuid.UUID, payload []byte, ttl time.Duration)
	// Invalidate drops the entry.  Deletes are unconditional.
	Invalidate(ctx context.Context, showtimeID uuid.UUID)
}

func key(showtimeID uuid.UUID) string { return "seatMap:" + showtimeID.String() }

// RedisSeatMapCache backs the cache with Redis so every server replica sees
// the same staleness window.
type RedisSeatMapCache struct {
	rdb *redis.Client
}

// NewRedis returns a Redis-backed seat-map cache.
func NewRedis(rdb *redis.Client) *RedisSeatMapCache { return &RedisSeatMapCache{rdb: rdb} }

// Get implements SeatMapCache.
func (c *RedisSeatMapCache) Get(ctx context.Context, showtimeID uuid.UUID) ([]byte, bool) {
	bs, err := c.rdb.Get(ctx, key(showtimeID)).Bytes()
	if err != nil || len(bs) == 0 {
		return nil, false
	}
	return bs, true
}

// Set implements SeatMapCache.
func (c *RedisSeatMapCache) Set(ctx context.Context, showtimeID uuid.UUID, payload []byte, ttl time.Duration) {
	_ = c.rdb.SetEx(ctx, key(showtimeID), payload, ttl).Err()
}

// Invalidate implements SeatMapCache.
func (c *RedisSeatMapCache) Invalidate(ctx context.Context, showtimeID uuid.UUID) {
	_ = c.rdb.Del(ctx, key(showtimeID)).Err()
}

// MemorySeatMapCache is the in-process fallback used when Redis is not
// reachable at startup, and by tests.  Entries expire lazily on read.
type MemorySeatMapCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// NewMemory returns an empty in-process seat-map cache.
func NewMemory() *MemorySeatMapCache {
	return &MemorySeatMapCache{entries: make(map[string]memoryEntry)}
}

// Get implements SeatMapCache.
func (c *MemorySeatMapCache) Get(_ context.Context, showtimeID uuid.UUID) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key(showtimeID)]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key(showtimeID))
		return nil, false
	}
	return e.payload, true
}

// Set implements SeatMapCache.
func (c *MemorySeatMapCache) Set(_ context.Context, showtimeID uuid.UUID, payload []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(showtimeID)] = memoryEntry{payload: payload, expiresAt: time.Now().Add(ttl)}
}

// Invalidate implements SeatMapCache.
func (c *MemorySeatMapCache) Invalidate(_ context.Context, showtimeID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key(showtimeID))
}
