package utils

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Every blog response key shares CacheKeyBlogs so a write can drop them together.
const (
	CacheKeyBlogs        = "cache:blogs:"
	CacheKeyBlogList     = CacheKeyBlogs + "list:"
	CacheKeyBlogTrending = CacheKeyBlogs + "trending"

	defaultCacheTTL = time.Minute
	cacheTimeout    = 2 * time.Second
)

// ResponseCache stores rendered JSON responses by key.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

var (
	cacheMu       sync.RWMutex
	cacheOverride ResponseCache
)

// SetResponseCache installs c as the response cache. Passing nil restores the Redis backend.
func SetResponseCache(c ResponseCache) {
	cacheMu.Lock()
	cacheOverride = c
	cacheMu.Unlock()
}

// responseCache returns the active backend, or nil when caching is off.
func responseCache() ResponseCache {
	cacheMu.RLock()
	c := cacheOverride
	cacheMu.RUnlock()
	if c != nil {
		return c
	}
	if rc := GetRedis(); rc != nil {
		return redisCache{rc: rc}
	}
	return nil
}

type redisCache struct {
	rc *redis.Client
}

func (r redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	return r.rc.Get(ctx, key).Bytes()
}

func (r redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.rc.Set(ctx, key, value, ttl).Err()
}

func (r redisCache) Delete(ctx context.Context, keys ...string) error {
	return r.rc.Del(ctx, keys...).Err()
}

// DeletePrefix walks matching keys with SCAN, at most ten rounds.
func (r redisCache) DeletePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for round := 0; round < 10; round++ {
		keys, next, err := r.rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.rc.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if cursor = next; cursor == 0 {
			return nil
		}
	}
	return nil
}

// CacheGetBytes returns the cached value for key. Misses and backend errors both report false.
func CacheGetBytes(key string) ([]byte, bool) {
	c := responseCache()
	if c == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	b, err := c.Get(ctx, key)
	if err != nil {
		Sugar.Debugf("cache miss key=%s err=%v", key, err)
		return nil, false
	}
	return b, true
}

// CacheSetBytes stores b under key for ttl, or for a minute when ttl is not positive.
func CacheSetBytes(key string, b []byte, ttl time.Duration) {
	c := responseCache()
	if c == nil {
		return
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	if err := c.Set(ctx, key, b, ttl); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// CacheSetJSON marshals v and stores it under key.
func CacheSetJSON(key string, v interface{}, ttl time.Duration) {
	if responseCache() == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		Sugar.Warnf("cache marshal failed key=%s err=%v", key, err)
		return
	}
	CacheSetBytes(key, b, ttl)
}

// CacheDelete drops exact keys.
func CacheDelete(keys ...string) {
	c := responseCache()
	if c == nil || len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	if err := c.Delete(ctx, keys...); err != nil {
		Sugar.Warnf("cache delete failed keys=%v err=%v", keys, err)
	}
}

// InvalidateByPrefix drops every key starting with prefix.
func InvalidateByPrefix(prefix string) {
	c := responseCache()
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.DeletePrefix(ctx, prefix); err != nil {
		Sugar.Warnf("cache invalidate failed prefix=%s err=%v", prefix, err)
	}
}
