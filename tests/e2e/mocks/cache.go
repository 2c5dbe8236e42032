package mocks

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TrackingCache is an in-memory cache with expiry that counts calls. It stores
// JSON like the Redis cache and reports misses as redis.Nil.
type TrackingCache struct {
	mu       sync.Mutex
	getCalls int
	setCalls int
	data     map[string]cacheEntry
}

type cacheEntry struct {
	value  []byte
	expiry time.Time
}

// live mirrors Redis: a zero expiry never expires.
func (e cacheEntry) live(now time.Time) bool {
	return e.expiry.IsZero() || now.Before(e.expiry)
}

func NewTrackingCache() *TrackingCache {
	return &TrackingCache{data: make(map[string]cacheEntry)}
}

func (c *TrackingCache) Get(_ context.Context, key string, dest any) error {
	c.mu.Lock()
	c.getCalls++
	entry, ok := c.data[key]
	c.mu.Unlock()
	if !ok || !entry.live(time.Now()) {
		return redis.Nil
	}
	return json.Unmarshal(entry.value, dest)
}

func (c *TrackingCache) Set(_ context.Context, key string, value any, exp time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	entry := cacheEntry{value: data}
	if exp > 0 {
		entry.expiry = time.Now().Add(exp)
	}
	c.data[key] = entry
	return nil
}

func (c *TrackingCache) Close() error { return nil }

// Calls returns the Get and Set counts.
func (c *TrackingCache) Calls() (gets, sets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getCalls, c.setCalls
}

// Has reports whether key holds an unexpired value.
func (c *TrackingCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[key]
	return ok && entry.live(time.Now())
}

// HasPrefix reports whether any unexpired key starts with prefix.
func (c *TrackingCache) HasPrefix(prefix string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, e := range c.data {
		if strings.HasPrefix(k, prefix) && e.live(now) {
			return true
		}
	}
	return false
}
