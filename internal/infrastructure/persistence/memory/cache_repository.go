// Package memory provides in-memory repository implementations used in
// development and tests. They honor the same contracts as the Redis and
// database adapters, including counter text encoding and TTL expiry.
package memory

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/vitalroute/v1/internal/ports/outbound"
)

var errKeyNotFound = errors.New("key not found")

// cacheItem is one stored value with its expiry
type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

// CacheRepository implements an in-memory cache with TTL expiry.
// Counters are stored as decimal text, matching the Redis INCRBY encoding,
// so Counter reads work identically against either backend.
type CacheRepository struct {
	data  map[string]cacheItem
	mutex sync.RWMutex
	now   func() time.Time
}

// NewCacheRepository creates a new in-memory cache repository
func NewCacheRepository() *CacheRepository {
	repo := &CacheRepository{
		data: make(map[string]cacheItem),
		now:  time.Now,
	}
	go repo.cleanup()
	return repo
}

func (r *CacheRepository) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return r.now().Add(ttl)
}

// Get retrieves a value from cache
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	item, exists := r.data[key]
	if !exists || r.now().After(item.expiresAt) {
		return nil, errKeyNotFound
	}
	return item.value, nil
}

// Set stores a value in cache with TTL
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.data[key] = cacheItem{value: value, expiresAt: r.expiry(ttl)}
	return nil
}

// Delete removes a key from cache
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.data, key)
	return nil
}

// Exists checks if a key exists in cache
func (r *CacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	item, exists := r.data[key]
	return exists && !r.now().After(item.expiresAt), nil
}

// Increment increments a counter by one
func (r *CacheRepository) Increment(ctx context.Context, key string) (int64, error) {
	return r.IncrementBy(ctx, key, 1, 24*time.Hour)
}

// IncrementBy atomically adds delta to a counter, creating it when missing
func (r *CacheRepository) IncrementBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var current int64
	expiresAt := r.expiry(ttl)
	if item, exists := r.data[key]; exists && !r.now().After(item.expiresAt) {
		current, _ = strconv.ParseInt(string(item.value), 10, 64)
		// Existing counters keep their period expiry.
		expiresAt = item.expiresAt
	}

	current += delta
	r.data[key] = cacheItem{
		value:     []byte(strconv.FormatInt(current, 10)),
		expiresAt: expiresAt,
	}
	return current, nil
}

// Counter reads a counter value; a missing key reads as zero
func (r *CacheRepository) Counter(ctx context.Context, key string) (int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	item, exists := r.data[key]
	if !exists || r.now().After(item.expiresAt) {
		return 0, nil
	}
	return strconv.ParseInt(string(item.value), 10, 64)
}

// cleanup removes expired items on a fixed interval
func (r *CacheRepository) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		r.mutex.Lock()
		now := r.now()
		for key, item := range r.data {
			if now.After(item.expiresAt) {
				delete(r.data, key)
			}
		}
		r.mutex.Unlock()
	}
}

var _ outbound.CacheRepository = (*CacheRepository)(nil)
