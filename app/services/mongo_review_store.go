package services

import (
	"context"
	"errors"
	"time"

	"github.com/address-normalizer/app/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoReviewStore persists the review queue and learned aliases in MongoDB.
type MongoReviewStore struct {
	reviews *mongo.Collection
	aliases *mongo.Collection
	logger  *zap.Logger
}

// NewMongoReviewStore creates a Mongo-backed review store and ensures
// its indexes exist.
func NewMongoReviewStore(db *mongo.Database, logger *zap.Logger) *MongoReviewStore {
	mrs := &MongoReviewStore{
		reviews: db.Collection("normalization_reviews"),
		aliases: db.Collection("learned_aliases"),
		logger:  logger,
	}
	mrs.ensureIndexes()
	return mrs
}

// ensureIndexes creates the query indexes both collections rely on.
func (mrs *MongoReviewStore) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reviewIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "confidence", Value: 1}}},
	}
	if _, err := mrs.reviews.Indexes().CreateMany(ctx, reviewIndexes); err != nil {
		mrs.logger.Warn("Failed to create review indexes", zap.Error(err))
	}

	aliasIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "observed", Value: 1},
				{Key: "canonical", Value: 1},
				{Key: "field", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "usage_count", Value: -1}}},
	}
	if _, err := mrs.aliases.Indexes().CreateMany(ctx, aliasIndexes); err != nil {
		mrs.logger.Warn("Failed to create alias indexes", zap.Error(err))
	}
}

// Insert adds a new review entry.
func (mrs *MongoReviewStore) Insert(ctx context.Context, review *models.NormalizationReview) error {
	_, err := mrs.reviews.InsertOne(ctx, review)
	return err
}

// GetByID returns the review with the given ID.
func (mrs *MongoReviewStore) GetByID(ctx context.Context, id string) (*models.NormalizationReview, error) {
	var review models.NormalizationReview
	err := mrs.reviews.FindOne(ctx, bson.M{"_id": id}).Decode(&review)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return &review, nil
}

// Update replaces the stored review matched by ID.
func (mrs *MongoReviewStore) Update(ctx context.Context, review *models.NormalizationReview) error {
	result, err := mrs.reviews.ReplaceOne(ctx, bson.M{"_id": review.ID}, review)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrReviewNotFound
	}
	return nil
}

// List returns reviews newest-first, optionally filtered by status.
func (mrs *MongoReviewStore) List(ctx context.Context, status string, limit, offset int) ([]*models.NormalizationReview, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	total, err := mrs.reviews.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := mrs.reviews.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	reviews := make([]*models.NormalizationReview, 0, limit)
	for cursor.Next(ctx) {
		var review models.NormalizationReview
		if err := cursor.Decode(&review); err != nil {
			mrs.logger.Warn("Failed to decode review entry", zap.Error(err))
			continue
		}
		reviews = append(reviews, &review)
	}
	return reviews, total, cursor.Err()
}

// CountByStatus returns entry counts keyed by review status.
func (mrs *MongoReviewStore) CountByStatus(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := mrs.reviews.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	counts := make(map[string]int64)
	for cursor.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			Count  int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			continue
		}
		counts[row.Status] = row.Count
	}
	return counts, cursor.Err()
}

// InsertAlias upserts a learned alias, bumping usage on duplicates.
func (mrs *MongoReviewStore) InsertAlias(ctx context.Context, alias *models.LearnedAlias) error {
	filter := bson.M{
		"observed":  alias.Observed,
		"canonical": alias.Canonical,
		"field":     alias.Field,
	}
	update := bson.M{
		"$inc": bson.M{"usage_count": 1},
		"$set": bson.M{"last_used": time.Now()},
		"$setOnInsert": bson.M{
			"confidence": alias.Confidence,
			"source":     alias.Source,
			"created_at": alias.CreatedAt,
		},
	}
	_, err := mrs.aliases.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// ListAliases returns up to limit aliases, most used first.
func (mrs *MongoReviewStore) ListAliases(ctx context.Context, limit int) ([]*models.LearnedAlias, error) {
	opts := options.Find().SetSort(bson.D{{Key: "usage_count", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := mrs.aliases.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	aliases := make([]*models.LearnedAlias, 0, limit)
	for cursor.Next(ctx) {
		var alias models.LearnedAlias
		if err := cursor.Decode(&alias); err != nil {
			mrs.logger.Warn("Failed to decode learned alias", zap.Error(err))
			continue
		}
		aliases = append(aliases, &alias)
	}
	return aliases, cursor.Err()
}
