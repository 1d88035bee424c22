package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/address-normalizer/app/models"
	"github.com/address-normalizer/internal/search"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// AdminService exposes the operational surface: stats, alias imports,
// search index maintenance and data exports.
type AdminService struct {
	normalizeService *NormalizeService
	reviewStore      ReviewStore
	searcher         *search.ReviewSearcher
	db               *mongo.Database
	logger           *zap.Logger
}

// AliasValidation reports import readiness for a batch of aliases.
type AliasValidation struct {
	Passed   bool     `json:"passed"`
	Warnings []string `json:"warnings"`
}

// ImportResult summarizes an alias import.
type ImportResult struct {
	AliasesImported  int   `json:"aliases_imported"`
	SynonymsUpdated  bool  `json:"synonyms_updated"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// SystemStats aggregates pipeline, queue and process statistics.
type SystemStats struct {
	AccuracyRate        float64                `json:"accuracy_rate"`
	AvgProcessingTimeMs float64                `json:"avg_processing_time_ms"`
	TotalProcessed      int64                  `json:"total_processed"`
	ReviewQueueSize     int64                  `json:"review_queue_size"`
	Uptime              string                 `json:"uptime"`
	MemoryUsage         map[string]interface{} `json:"memory_usage"`
	DatabaseStats       DatabaseStats          `json:"database_stats"`
}

// DatabaseStats holds per-collection document counts. All zeros when
// the service runs without MongoDB.
type DatabaseStats struct {
	ResultCache    int64 `json:"result_cache"`
	Reviews        int64 `json:"reviews"`
	LearnedAliases int64 `json:"learned_aliases"`
}

// NewAdminService creates the service. Searcher and db may be nil;
// operations that need them return errors or zero values.
func NewAdminService(normalizeService *NormalizeService, reviewStore ReviewStore, searcher *search.ReviewSearcher, db *mongo.Database, logger *zap.Logger) *AdminService {
	return &AdminService{
		normalizeService: normalizeService,
		reviewStore:      reviewStore,
		searcher:         searcher,
		db:               db,
		logger:           logger,
	}
}

// ValidateAliases checks a batch of aliases before import.
func (as *AdminService) ValidateAliases(data []models.LearnedAlias) *AliasValidation {
	warnings := make([]string, 0)

	if len(data) == 0 {
		return &AliasValidation{
			Passed:   false,
			Warnings: []string{"no aliases to validate"},
		}
	}

	seen := make(map[string]bool)
	for i, alias := range data {
		if alias.Observed == "" {
			warnings = append(warnings, fmt.Sprintf("missing observed value at index %d", i))
		}
		if alias.Canonical == "" {
			warnings = append(warnings, fmt.Sprintf("missing canonical value at index %d", i))
		}
		if !alias.IsValidField() {
			warnings = append(warnings, fmt.Sprintf("invalid field %q at index %d", alias.Field, i))
		}

		key := aliasKey(&alias)
		if seen[key] {
			warnings = append(warnings, fmt.Sprintf("duplicate alias %q -> %q at index %d", alias.Observed, alias.Canonical, i))
		}
		seen[key] = true
	}

	return &AliasValidation{
		Passed:   len(warnings) == 0,
		Warnings: warnings,
	}
}

// ImportAliases validates and stores a batch of manually curated
// aliases, optionally pushing the refreshed set into search synonyms.
func (as *AdminService) ImportAliases(ctx context.Context, data []models.LearnedAlias, updateSynonyms bool) (*ImportResult, error) {
	startTime := time.Now()

	validation := as.ValidateAliases(data)
	if !validation.Passed {
		return nil, fmt.Errorf("invalid alias data: %v", validation.Warnings)
	}

	imported := 0
	for _, alias := range data {
		entry := models.NewLearnedAlias(alias.Observed, alias.Canonical, alias.Field, models.AliasSourceManual)
		if alias.Confidence > 0 {
			entry.UpdateConfidence(alias.Confidence)
		}
		if err := as.reviewStore.InsertAlias(ctx, entry); err != nil {
			return nil, fmt.Errorf("storing alias %q: %w", alias.Observed, err)
		}
		imported++
	}

	synonymsUpdated := false
	if updateSynonyms && as.searcher != nil {
		if err := as.RebuildSynonyms(ctx); err != nil {
			as.logger.Warn("Failed to update synonyms after import", zap.Error(err))
		} else {
			synonymsUpdated = true
		}
	}

	processingTime := time.Since(startTime)
	as.logger.Info("Alias import completed",
		zap.Int("aliases_imported", imported),
		zap.Bool("synonyms_updated", synonymsUpdated),
		zap.Duration("processing_time", processingTime))

	return &ImportResult{
		AliasesImported:  imported,
		SynonymsUpdated:  synonymsUpdated,
		ProcessingTimeMs: processingTime.Milliseconds(),
	}, nil
}

// ListAliases returns stored aliases, most used first.
func (as *AdminService) ListAliases(ctx context.Context, limit int) ([]*models.LearnedAlias, error) {
	return as.reviewStore.ListAliases(ctx, limit)
}

// RebuildSynonyms pushes the stored alias set into the search index.
func (as *AdminService) RebuildSynonyms(ctx context.Context) error {
	if as.searcher == nil {
		return errors.New("search is not configured")
	}

	aliases, err := as.reviewStore.ListAliases(ctx, synonymRefreshLimit)
	if err != nil {
		return fmt.Errorf("loading learned aliases: %w", err)
	}

	if err := as.searcher.UpdateSynonyms(aliases); err != nil {
		return fmt.Errorf("updating search synonyms: %w", err)
	}

	as.logger.Info("Synonyms rebuilt", zap.Int("alias_count", len(aliases)))
	return nil
}

// BuildIndexes applies the search index settings.
func (as *AdminService) BuildIndexes() error {
	if as.searcher == nil {
		return errors.New("search is not configured")
	}

	if err := as.searcher.BuildIndexes(); err != nil {
		return fmt.Errorf("building search indexes: %w", err)
	}

	as.logger.Info("Search indexes built")
	return nil
}

// ReindexReviews rebuilds the search projection from the review store
// and returns the number of entries indexed.
func (as *AdminService) ReindexReviews(ctx context.Context) (int, error) {
	if as.searcher == nil {
		return 0, errors.New("search is not configured")
	}

	reviews, _, err := as.reviewStore.List(ctx, "", 0, 0)
	if err != nil {
		return 0, fmt.Errorf("loading reviews: %w", err)
	}
	if len(reviews) == 0 {
		return 0, nil
	}

	if err := as.searcher.IndexReviews(reviews); err != nil {
		return 0, fmt.Errorf("indexing reviews: %w", err)
	}
	return len(reviews), nil
}

// GetSystemStats collects pipeline counters, queue size and process
// memory into one snapshot.
func (as *AdminService) GetSystemStats(ctx context.Context) (*SystemStats, error) {
	dbStats, err := as.getDatabaseStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("collecting database stats: %w", err)
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	memoryUsage := map[string]interface{}{
		"alloc_mb":       bToMb(m.Alloc),
		"total_alloc_mb": bToMb(m.TotalAlloc),
		"sys_mb":         bToMb(m.Sys),
		"num_gc":         m.NumGC,
	}

	counters := as.normalizeService.Counters()
	accuracyRate := 0.0
	if counters.TotalProcessed > 0 {
		accuracyRate = float64(counters.TotalNormalized) / float64(counters.TotalProcessed)
	}

	queueSize := int64(0)
	if as.reviewStore != nil {
		counts, err := as.reviewStore.CountByStatus(ctx)
		if err != nil {
			as.logger.Warn("Failed to count review queue", zap.Error(err))
		} else {
			queueSize = counts[models.ReviewStatusPending]
		}
	}

	uptime := time.Since(as.normalizeService.GetStartTime()).Round(time.Second)

	return &SystemStats{
		AccuracyRate:        accuracyRate,
		AvgProcessingTimeMs: counters.AvgProcessingMs,
		TotalProcessed:      counters.TotalProcessed,
		ReviewQueueSize:     queueSize,
		Uptime:              uptime.String(),
		MemoryUsage:         memoryUsage,
		DatabaseStats:       *dbStats,
	}, nil
}

// getDatabaseStats counts documents per collection.
func (as *AdminService) getDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	stats := &DatabaseStats{}
	if as.db == nil {
		return stats, nil
	}

	count, err := as.db.Collection("result_cache").CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	stats.ResultCache = count

	count, err = as.db.Collection("normalization_reviews").CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	stats.Reviews = count

	count, err = as.db.Collection("learned_aliases").CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	stats.LearnedAliases = count

	return stats, nil
}

// ExportData dumps a collection as pretty-printed JSON for backups.
func (as *AdminService) ExportData(ctx context.Context, dataType string, limit int) ([]byte, error) {
	if as.db == nil {
		return nil, errors.New("database is not configured")
	}

	var collection *mongo.Collection
	switch dataType {
	case "result_cache":
		collection = as.db.Collection("result_cache")
	case "reviews":
		collection = as.db.Collection("normalization_reviews")
	case "learned_aliases":
		collection = as.db.Collection("learned_aliases")
	default:
		return nil, fmt.Errorf("unknown data type %q", dataType)
	}

	findOptions := options.Find().SetLimit(int64(limit))
	cursor, err := collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", dataType, err)
	}
	defer cursor.Close(ctx)

	var results []bson.M
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", dataType, err)
	}

	return json.MarshalIndent(results, "", "  ")
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
