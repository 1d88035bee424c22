package services

import (
	"context"
	"testing"
	"time"

	"github.com/address-normalizer/app/models"
)

func cachedResult(raw string) *models.NormalizationResult {
	return &models.NormalizationResult{
		Raw:            raw,
		NormalizedText: raw,
		Tags:           map[string]string{"addr:housenumber": "123"},
		Status:         models.StatusNormalized,
		Confidence:     1.0,
		CreatedAt:      time.Now(),
	}
}

func TestCacheService_SetGet(t *testing.T) {
	cs := NewCacheService(time.Minute)
	defer cs.Close()

	ctx := context.Background()
	want := cachedResult("123 Main Street")

	if err := cs.Set(ctx, want.Raw, want); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, found, err := cs.Get(ctx, want.Raw)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("Get() found = false, want true")
	}
	if got.Raw != want.Raw {
		t.Errorf("Get() raw = %q, want %q", got.Raw, want.Raw)
	}
}

func TestCacheService_MissingKey(t *testing.T) {
	cs := NewCacheService(time.Minute)
	defer cs.Close()

	got, found, err := cs.Get(context.Background(), "never stored")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Errorf("Get() found = true for missing key, result = %+v", got)
	}
}

func TestCacheService_Expiry(t *testing.T) {
	cs := NewCacheService(20 * time.Millisecond)
	defer cs.Close()

	ctx := context.Background()
	result := cachedResult("789 Oak Drive")

	if err := cs.Set(ctx, result.Raw, result); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(40 * time.Millisecond)

	_, found, err := cs.Get(ctx, result.Raw)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Get() found expired entry")
	}

	exists, err := cs.Exists(ctx, result.Raw)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true for expired entry")
	}

	ttl, err := cs.GetTTL(ctx, result.Raw)
	if err != nil {
		t.Fatalf("GetTTL() error = %v", err)
	}
	if ttl != 0 {
		t.Errorf("GetTTL() = %v for expired entry, want 0", ttl)
	}
}

func TestCacheService_GetTTL(t *testing.T) {
	cs := NewCacheService(time.Minute)
	defer cs.Close()

	ctx := context.Background()
	result := cachedResult("456 Elm Street")

	if err := cs.Set(ctx, result.Raw, result); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	ttl, err := cs.GetTTL(ctx, result.Raw)
	if err != nil {
		t.Fatalf("GetTTL() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("GetTTL() = %v, want within (0, 1m]", ttl)
	}
}

func TestCacheService_DeleteAndClear(t *testing.T) {
	cs := NewCacheService(time.Minute)
	defer cs.Close()

	ctx := context.Background()
	first := cachedResult("1 First Avenue")
	second := cachedResult("2 Second Avenue")

	if err := cs.Set(ctx, first.Raw, first); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cs.Set(ctx, second.Raw, second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := cs.Delete(ctx, first.Raw); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, _ := cs.Get(ctx, first.Raw); found {
		t.Error("Get() found deleted entry")
	}
	if cs.Size() != 1 {
		t.Errorf("Size() = %d after delete, want 1", cs.Size())
	}

	if err := cs.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if cs.Size() != 0 {
		t.Errorf("Size() = %d after clear, want 0", cs.Size())
	}
}

func TestCacheService_InvalidateByTableVersion(t *testing.T) {
	cs := NewCacheService(time.Minute)
	defer cs.Close()

	ctx := context.Background()
	result := cachedResult("345 Maple Road")

	if err := cs.Set(ctx, result.Raw, result); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := cs.InvalidateByTableVersion(ctx, "2"); err != nil {
		t.Fatalf("InvalidateByTableVersion() error = %v", err)
	}

	if cs.Size() != 0 {
		t.Errorf("Size() = %d after invalidation, want 0", cs.Size())
	}
}

func TestCacheService_Stats(t *testing.T) {
	cs := NewCacheService(time.Minute)
	defer cs.Close()

	ctx := context.Background()
	result := cachedResult("777 Strawberry Street")

	if err := cs.Set(ctx, result.Raw, result); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, found, _ := cs.Get(ctx, result.Raw); !found {
		t.Fatal("Get() found = false for stored entry")
	}
	if _, found, _ := cs.Get(ctx, "not there"); found {
		t.Fatal("Get() found = true for missing entry")
	}

	stats, err := cs.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}

	if stats.TotalHits != 1 {
		t.Errorf("TotalHits = %d, want 1", stats.TotalHits)
	}
	if stats.TotalMiss != 1 {
		t.Errorf("TotalMiss = %d, want 1", stats.TotalMiss)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", stats.HitRate)
	}
	if stats.TotalItems != 1 {
		t.Errorf("TotalItems = %d, want 1", stats.TotalItems)
	}
}

func TestCacheService_CleanupExpired(t *testing.T) {
	cs := NewCacheService(10 * time.Millisecond)
	defer cs.Close()

	ctx := context.Background()
	result := cachedResult("9 Ninth Street")

	if err := cs.Set(ctx, result.Raw, result); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(25 * time.Millisecond)
	cs.CleanupExpired()

	if cs.Size() != 0 {
		t.Errorf("Size() = %d after cleanup, want 0", cs.Size())
	}
}
