package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/address-normalizer/app/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoCacheService is the persistent cache backend: an LRU in front of a
// Mongo collection keyed by the raw-input fingerprint.
type MongoCacheService struct {
	db           *mongo.Database
	collection   *mongo.Collection
	l1Cache      *lru.Cache[string, *models.NormalizationResult]
	tableVersion string
	logger       *zap.Logger

	totalHits atomic.Int64
	totalMiss atomic.Int64
	l1Hits    atomic.Int64
	l1Miss    atomic.Int64
	mongoHits atomic.Int64
	mongoMiss atomic.Int64
}

// NewMongoCacheService builds the backend and ensures its indexes exist.
// tableVersion stamps new entries so stale ones can be invalidated later.
func NewMongoCacheService(db *mongo.Database, l1Size int, tableVersion string, logger *zap.Logger) (*MongoCacheService, error) {
	l1Cache, err := lru.New[string, *models.NormalizationResult](l1Size)
	if err != nil {
		return nil, fmt.Errorf("creating LRU cache: %w", err)
	}

	collection := db.Collection("result_cache")

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "raw_fingerprint", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{bson.E{Key: "table_version", Value: 1}},
		},
		{
			Keys: bson.D{bson.E{Key: "created_at", Value: 1}},
		},
		{
			Keys: bson.D{bson.E{Key: "last_accessed", Value: 1}},
		},
		{
			Keys: bson.D{bson.E{Key: "manually_verified", Value: 1}},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		logger.Warn("Could not create result_cache indexes", zap.Error(err))
	}

	service := &MongoCacheService{
		db:           db,
		collection:   collection,
		l1Cache:      l1Cache,
		tableVersion: tableVersion,
		logger:       logger,
	}

	return service, nil
}

// Get checks the LRU first, then the Mongo collection.
func (mcs *MongoCacheService) Get(ctx context.Context, key string) (*models.NormalizationResult, bool, error) {
	if result, found := mcs.l1Cache.Get(key); found {
		mcs.l1Hits.Add(1)
		mcs.totalHits.Add(1)
		mcs.logger.Debug("L1 cache hit", zap.String("key", key))
		return result, true, nil
	}
	mcs.l1Miss.Add(1)

	fingerprint := models.Fingerprint(key)

	var entry models.ResultCache
	filter := bson.M{"raw_fingerprint": fingerprint}

	err := mcs.collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			mcs.mongoMiss.Add(1)
			mcs.totalMiss.Add(1)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("querying result cache: %w", err)
	}

	mcs.mongoHits.Add(1)
	mcs.totalHits.Add(1)

	go mcs.updateAccessStats(entry.ID)

	mcs.l1Cache.Add(key, &entry.Result)

	mcs.logger.Debug("Mongo cache hit",
		zap.String("key", key),
		zap.String("fingerprint", fingerprint))

	return &entry.Result, true, nil
}

// Set writes through to both the LRU and the Mongo collection.
func (mcs *MongoCacheService) Set(ctx context.Context, key string, result *models.NormalizationResult) error {
	mcs.l1Cache.Add(key, result)

	entry := models.NewResultCache(result, mcs.tableVersion)

	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"raw_fingerprint": entry.RawFingerprint}

	if _, err := mcs.collection.ReplaceOne(ctx, filter, entry, opts); err != nil {
		mcs.logger.Error("Mongo cache write failed",
			zap.Error(err),
			zap.String("fingerprint", entry.RawFingerprint))
		return fmt.Errorf("storing result cache entry: %w", err)
	}

	mcs.logger.Debug("Stored in Mongo cache",
		zap.String("key", key),
		zap.String("fingerprint", entry.RawFingerprint),
		zap.Float64("confidence", result.Confidence))

	return nil
}

// Delete removes one entry from both layers.
func (mcs *MongoCacheService) Delete(ctx context.Context, key string) error {
	mcs.l1Cache.Remove(key)

	filter := bson.M{"raw_fingerprint": models.Fingerprint(key)}

	if _, err := mcs.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("deleting result cache entry: %w", err)
	}

	return nil
}

// Clear removes every entry and resets the counters.
func (mcs *MongoCacheService) Clear(ctx context.Context) error {
	mcs.l1Cache.Purge()

	if _, err := mcs.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clearing result cache: %w", err)
	}

	mcs.totalHits.Store(0)
	mcs.totalMiss.Store(0)
	mcs.l1Hits.Store(0)
	mcs.l1Miss.Store(0)
	mcs.mongoHits.Store(0)
	mcs.mongoMiss.Store(0)

	return nil
}

// InvalidateByTableVersion drops entries produced with any other
// abbreviation table revision.
func (mcs *MongoCacheService) InvalidateByTableVersion(ctx context.Context, tableVersion string) error {
	mcs.l1Cache.Purge()

	filter := bson.M{"table_version": bson.M{"$ne": tableVersion}}

	result, err := mcs.collection.DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("invalidating by table version: %w", err)
	}

	mcs.logger.Info("Invalidated stale cache entries",
		zap.String("table_version", tableVersion),
		zap.Int64("deleted_count", result.DeletedCount))

	return nil
}

// GetStats reports combined hit-rate bookkeeping for both layers.
func (mcs *MongoCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	mongoCount, err := mcs.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("counting result cache entries: %w", err)
	}

	hits := mcs.totalHits.Load()
	misses := mcs.totalMiss.Load()
	total := hits + misses

	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	stats := &CacheStats{
		HitRate:    hitRate,
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: mongoCount,
	}

	mcs.logger.Debug("Cache stats",
		zap.Float64("hit_rate", hitRate),
		zap.Int64("l1_hits", mcs.l1Hits.Load()),
		zap.Int64("l1_miss", mcs.l1Miss.Load()),
		zap.Int64("mongo_hits", mcs.mongoHits.Load()),
		zap.Int64("mongo_miss", mcs.mongoMiss.Load()),
		zap.Int("l1_size", mcs.l1Cache.Len()),
		zap.Int64("mongo_count", mongoCount))

	return stats, nil
}

// Exists reports whether a key is cached in either layer.
func (mcs *MongoCacheService) Exists(ctx context.Context, key string) (bool, error) {
	if mcs.l1Cache.Contains(key) {
		return true, nil
	}

	filter := bson.M{"raw_fingerprint": models.Fingerprint(key)}

	count, err := mcs.collection.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("checking result cache entry: %w", err)
	}

	return count > 0, nil
}

// GetTTL always returns 0. Persistent entries live until invalidated.
func (mcs *MongoCacheService) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	return 0, nil
}

// Close releases nothing. The Mongo client belongs to the caller and the
// LRU needs no teardown.
func (mcs *MongoCacheService) Close() error {
	return nil
}

// updateAccessStats bumps access bookkeeping off the request path.
func (mcs *MongoCacheService) updateAccessStats(id primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{"last_accessed": time.Now()},
		"$inc": bson.M{"access_count": 1},
	}

	if _, err := mcs.collection.UpdateOne(ctx, filter, update); err != nil {
		mcs.logger.Warn("Access stats update failed", zap.Error(err))
	}
}

// WarmUp preloads the LRU with the most frequently hit entries.
func (mcs *MongoCacheService) WarmUp(ctx context.Context, limit int) error {
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "access_count", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := mcs.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return fmt.Errorf("warming up cache: %w", err)
	}
	defer cursor.Close(ctx)

	count := 0
	for cursor.Next(ctx) {
		var entry models.ResultCache
		if err := cursor.Decode(&entry); err != nil {
			mcs.logger.Warn("Skipping unreadable cache entry", zap.Error(err))
			continue
		}

		mcs.l1Cache.Add(entry.RawAddress, &entry.Result)
		count++
	}

	mcs.logger.Info("Cache warm-up complete",
		zap.Int("loaded_items", count),
		zap.Int("l1_size", mcs.l1Cache.Len()))

	return nil
}
