package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/address-normalizer/app/models"
)

// CacheService is the in-memory cache backend: a plain map with per-entry
// timestamps and a periodic cleanup worker.
type CacheService struct {
	cache      map[string]*models.NormalizationResult
	timestamps map[string]time.Time
	mu         sync.RWMutex
	ttl        time.Duration

	hits     atomic.Int64
	misses   atomic.Int64
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCacheService creates an in-memory cache with the given entry TTL.
func NewCacheService(ttl time.Duration) *CacheService {
	return &CacheService{
		cache:      make(map[string]*models.NormalizationResult),
		timestamps: make(map[string]time.Time),
		ttl:        ttl,
		stopCh:     make(chan struct{}),
	}
}

// Get returns the cached result for a key, treating expired entries as
// misses and scheduling their removal.
func (cs *CacheService) Get(ctx context.Context, key string) (*models.NormalizationResult, bool, error) {
	cs.mu.RLock()
	result, exists := cs.cache[key]
	expired := exists && cs.isExpired(key)
	cs.mu.RUnlock()

	if !exists {
		cs.misses.Add(1)
		return nil, false, nil
	}
	if expired {
		go cs.deleteExpired(key)
		cs.misses.Add(1)
		return nil, false, nil
	}

	cs.hits.Add(1)
	return result, true, nil
}

// Set stores a result under its key, resetting the entry TTL.
func (cs *CacheService) Set(ctx context.Context, key string, result *models.NormalizationResult) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.timestamps[key] = time.Now()
	cs.cache[key] = result

	return nil
}

// Delete removes one entry.
func (cs *CacheService) Delete(ctx context.Context, key string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.cache, key)
	delete(cs.timestamps, key)

	return nil
}

// Clear removes every entry.
func (cs *CacheService) Clear(ctx context.Context) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache = make(map[string]*models.NormalizationResult)
	cs.timestamps = make(map[string]time.Time)

	return nil
}

// InvalidateByTableVersion drops everything. In-memory entries carry no
// table version, so a version change invalidates the whole cache.
func (cs *CacheService) InvalidateByTableVersion(ctx context.Context, tableVersion string) error {
	return cs.Clear(ctx)
}

// Size returns the number of stored entries, expired ones included.
func (cs *CacheService) Size() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return len(cs.cache)
}

// GetStats reports hit-rate bookkeeping and the live entry count.
func (cs *CacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	cs.mu.RLock()
	total := len(cs.cache)
	expired := 0
	for key := range cs.cache {
		if cs.isExpired(key) {
			expired++
		}
	}
	cs.mu.RUnlock()

	hits := cs.hits.Load()
	misses := cs.misses.Load()
	lookups := hits + misses

	hitRate := float64(0)
	if lookups > 0 {
		hitRate = float64(hits) / float64(lookups)
	}

	return &CacheStats{
		HitRate:    hitRate,
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: int64(total - expired),
	}, nil
}

// CleanupExpired removes every expired entry.
func (cs *CacheService) CleanupExpired() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for key := range cs.cache {
		if cs.isExpired(key) {
			delete(cs.cache, key)
			delete(cs.timestamps, key)
		}
	}
}

// isExpired expects the caller to hold at least a read lock.
func (cs *CacheService) isExpired(key string) bool {
	timestamp, exists := cs.timestamps[key]
	if !exists {
		return true
	}
	return time.Since(timestamp) > cs.ttl
}

// deleteExpired removes one expired entry, re-checking under the write lock.
func (cs *CacheService) deleteExpired(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.isExpired(key) {
		return
	}
	delete(cs.cache, key)
	delete(cs.timestamps, key)
}

// Exists reports whether a key is cached and not expired.
func (cs *CacheService) Exists(ctx context.Context, key string) (bool, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	_, exists := cs.cache[key]
	return exists && !cs.isExpired(key), nil
}

// GetTTL returns the remaining lifetime of a key.
func (cs *CacheService) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	timestamp, exists := cs.timestamps[key]
	if !exists {
		return 0, nil
	}

	remaining := cs.ttl - time.Since(timestamp)
	if remaining < 0 {
		return 0, nil
	}

	return remaining, nil
}

// StartCleanupWorker sweeps expired entries on the given interval until the
// cache is closed.
func (cs *CacheService) StartCleanupWorker(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cs.CleanupExpired()
			case <-cs.stopCh:
				return
			}
		}
	}()
}

// Close stops the cleanup worker. The map itself needs no teardown.
func (cs *CacheService) Close() error {
	cs.stopOnce.Do(func() {
		close(cs.stopCh)
	})
	return nil
}
