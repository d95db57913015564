// Package cache is the key/value layer behind the site read-through cache,
// builder sessions, carts and login attempts. Values are stored as JSON.
//
// Redis is used when it answers a ping at startup; otherwise everything
// falls back to an in-process MemoryStore so a single node still works.
//
//	if err := cache.Connect(); err != nil {
//	    logger.Warn("redis unavailable, using memory cache", "error", err)
//	}
//	store := cache.Default()
//	_ = store.Set(ctx, "site:"+id, site, 10*time.Minute)
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/developlogy/sitebuilder/pkg/metrics"
)

// Store is implemented by RedisStore and MemoryStore.
type Store interface {
	// Get decodes the value at key into dest. A miss is (false, nil).
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value under key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	// Driver names the backend for metrics labels: "redis" or "memory".
	Driver() string
}

var (
	defaultMu    sync.RWMutex
	defaultStore Store = NewMemoryStore()
)

// Default returns the process-wide store chosen by Connect.
func Default() Store {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultStore
}

// SetDefault replaces the process-wide store. Tests use it to inject a fresh
// MemoryStore.
func SetDefault(s Store) {
	defaultMu.Lock()
	defaultStore = s
	defaultMu.Unlock()
}

// Get is Default().Get that also records hit/miss metrics.
func Get(ctx context.Context, key string, dest any) bool {
	s := Default()
	ok, err := s.Get(ctx, key, dest)
	if err != nil || !ok {
		metrics.CacheMisses.WithLabelValues(s.Driver()).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(s.Driver()).Inc()
	return true
}

// Set stores value in the default store.
func Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return Default().Set(ctx, key, value, ttl)
}

// Del removes keys from the default store.
func Del(ctx context.Context, keys ...string) error {
	return Default().Del(ctx, keys...)
}
