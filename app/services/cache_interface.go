package services

import (
	"context"
	"time"

	"github.com/address-normalizer/app/models"
)

// CacheStats is the shared stats shape reported by every cache backend.
type CacheStats struct {
	HitRate    float64 `json:"hit_rate"`
	TotalHits  int64   `json:"total_hits"`
	TotalMiss  int64   `json:"total_miss"`
	TotalItems int64   `json:"total_items"`
}

// ICacheService is the result cache used by the normalization service.
// Keys are raw input strings; values are full normalization results.
type ICacheService interface {
	// Get returns the cached result for a raw input, if present.
	Get(ctx context.Context, key string) (*models.NormalizationResult, bool, error)

	// Set stores a result under its raw input.
	Set(ctx context.Context, key string, result *models.NormalizationResult) error

	// Delete removes one entry.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// InvalidateByTableVersion drops entries produced with a different
	// abbreviation table revision.
	InvalidateByTableVersion(ctx context.Context, tableVersion string) error

	// GetStats reports hit-rate bookkeeping.
	GetStats(ctx context.Context) (*CacheStats, error)

	// Exists reports whether a key is cached without touching counters.
	Exists(ctx context.Context, key string) (bool, error)

	// GetTTL returns the remaining lifetime of a key, 0 when unknown.
	GetTTL(ctx context.Context, key string) (time.Duration, error)

	// Close releases backend connections where the backend owns them.
	Close() error
}
