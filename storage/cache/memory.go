package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"

	"github.com/quizly/backend/core"
	"github.com/quizly/backend/services/metrics"
)

const (
	backendMemory = "memory"

	// entries never outlive this, whatever ttl they were set with.
	memoryMaxTTL = 24 * time.Hour
)

type memoryEntry struct {
	data     []byte
	deadline time.Time // zero: no per-entry deadline
}

// MemoryCache is the in-process fallback used when no Redis is configured.
// Values are stored JSON encoded so that callers get the same copy semantics as with Redis.
type MemoryCache struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

var _ core.Cache = (*MemoryCache)(nil)

func NewMemoryCache(size int) *MemoryCache {
	if size <= 0 {
		size = 1024
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, memoryMaxTTL),
		now: time.Now,
	}
}

func (mc *MemoryCache) Ping(context.Context) error { return nil }

// lookup must be called with mc.mu held.
func (mc *MemoryCache) lookup(key string) (memoryEntry, bool) {
	entry, ok := mc.lru.Get(key)
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.deadline.IsZero() && !mc.now().Before(entry.deadline) {
		mc.lru.Remove(key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	mc.mu.Lock()
	entry, ok := mc.lookup(key)
	mc.mu.Unlock()
	if !ok {
		metrics.CacheMisses.WithLabelValues(backendMemory).Inc()
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		metrics.CacheErrors.WithLabelValues(backendMemory, "unmarshal").Inc()
		return false, errors.Wrapf(err, "decoding %q", key)
	}
	metrics.CacheHits.WithLabelValues(backendMemory).Inc()
	return true, nil
}

func (mc *MemoryCache) newEntry(key string, value interface{}, ttl time.Duration) (memoryEntry, error) {
	data, err := json.Marshal(value)
	if err != nil {
		metrics.CacheErrors.WithLabelValues(backendMemory, "marshal").Inc()
		return memoryEntry{}, errors.Wrapf(err, "encoding %q", key)
	}
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.deadline = mc.now().Add(ttl)
	}
	return entry, nil
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	entry, err := mc.newEntry(key, value, ttl)
	if err != nil {
		return err
	}
	mc.mu.Lock()
	mc.lru.Add(key, entry)
	mc.mu.Unlock()
	return nil
}

func (mc *MemoryCache) SetNX(_ context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	entry, err := mc.newEntry(key, value, ttl)
	if err != nil {
		return false, err
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if _, exists := mc.lookup(key); exists {
		return false, nil
	}
	mc.lru.Add(key, entry)
	return true, nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, k := range keys {
		mc.lru.Remove(k)
	}
	return nil
}
