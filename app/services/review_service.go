package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/address-normalizer/app/models"
	"github.com/address-normalizer/internal/parser"
	"github.com/address-normalizer/internal/search"
	"go.uber.org/zap"
)

// ErrReviewCompleted is returned when approving, rejecting or correcting
// an entry that a reviewer already resolved.
var ErrReviewCompleted = errors.New("review already completed")

// synonymRefreshLimit caps how many aliases feed the search synonym list.
const synonymRefreshLimit = 500

// ReviewService drives the manual review queue: listing and searching
// flagged results, resolving them, and learning aliases from corrections.
type ReviewService struct {
	store    ReviewStore
	searcher *search.ReviewSearcher
	logger   *zap.Logger
}

// NewReviewService creates the service. The searcher may be nil; search
// and index updates are skipped when absent.
func NewReviewService(store ReviewStore, searcher *search.ReviewSearcher, logger *zap.Logger) *ReviewService {
	return &ReviewService{
		store:    store,
		searcher: searcher,
		logger:   logger,
	}
}

// ListReviews returns queue entries newest-first, optionally filtered
// by status, along with the total count for the filter.
func (rs *ReviewService) ListReviews(ctx context.Context, status string, limit, offset int) ([]*models.NormalizationReview, int64, error) {
	if status != "" {
		probe := models.NormalizationReview{Status: status}
		if !probe.IsValidStatus() {
			return nil, 0, fmt.Errorf("unknown review status %q", status)
		}
	}
	return rs.store.List(ctx, status, limit, offset)
}

// GetReview returns a single queue entry by ID.
func (rs *ReviewService) GetReview(ctx context.Context, id string) (*models.NormalizationReview, error) {
	return rs.store.GetByID(ctx, id)
}

// CountByStatus returns queue sizes keyed by review status.
func (rs *ReviewService) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return rs.store.CountByStatus(ctx)
}

// SearchReviews runs a full-text query over the review index. An empty
// status searches all entries.
func (rs *ReviewService) SearchReviews(query, status string, limit int) ([]search.ReviewHit, error) {
	if rs.searcher == nil {
		return nil, errors.New("search is not configured")
	}
	if status != "" {
		return rs.searcher.SearchByStatus(query, status, limit)
	}
	return rs.searcher.Search(query, limit)
}

// Approve marks the auto result as correct.
func (rs *ReviewService) Approve(ctx context.Context, id, reviewerID string) (*models.NormalizationReview, error) {
	review, err := rs.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.IsCompleted() {
		return nil, ErrReviewCompleted
	}

	review.Approve(reviewerID)
	if err := rs.store.Update(ctx, review); err != nil {
		return nil, err
	}
	rs.reindex(review)

	rs.logger.Info("Review approved",
		zap.String("review_id", id),
		zap.String("reviewer_id", reviewerID))
	return review, nil
}

// Reject marks the auto result as wrong without supplying a correction.
func (rs *ReviewService) Reject(ctx context.Context, id, reviewerID string) (*models.NormalizationReview, error) {
	review, err := rs.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.IsCompleted() {
		return nil, ErrReviewCompleted
	}

	review.Reject(reviewerID)
	if err := rs.store.Update(ctx, review); err != nil {
		return nil, err
	}
	rs.reindex(review)

	rs.logger.Info("Review rejected",
		zap.String("review_id", id),
		zap.String("reviewer_id", reviewerID))
	return review, nil
}

// Correct replaces the auto result's tags with reviewer-supplied ones,
// approves the entry, and learns aliases from the differences.
func (rs *ReviewService) Correct(ctx context.Context, id, reviewerID string, tags map[string]string) (*models.NormalizationReview, error) {
	if len(tags) == 0 {
		return nil, errors.New("corrected tags must not be empty")
	}
	for key := range tags {
		if !isCorrectableTag(key) {
			return nil, fmt.Errorf("unknown tag key %q", key)
		}
	}

	review, err := rs.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.IsCompleted() {
		return nil, ErrReviewCompleted
	}

	manual := review.AutoResult
	manual.Tags = tags
	manual.Ambiguous = false
	manual.Notes = nil
	manual.Status = models.StatusNormalized
	manual.Confidence = 1.0
	manual.CreatedAt = time.Now()

	review.SetManualResult(manual, reviewerID)
	if err := rs.store.Update(ctx, review); err != nil {
		return nil, err
	}
	rs.reindex(review)

	learned := rs.learnAliases(ctx, review)
	rs.logger.Info("Review corrected",
		zap.String("review_id", id),
		zap.String("reviewer_id", reviewerID),
		zap.Int("aliases_learned", learned))
	return review, nil
}

// learnAliases records an alias for every tag the reviewer changed and
// pushes the refreshed set into the search synonym list.
func (rs *ReviewService) learnAliases(ctx context.Context, review *models.NormalizationReview) int {
	if review.ManualResult == nil {
		return 0
	}

	learned := 0
	for key, manualValue := range review.ManualResult.Tags {
		autoValue := review.AutoResult.Tag(key)
		if autoValue == "" || manualValue == "" || autoValue == manualValue {
			continue
		}
		alias := models.NewLearnedAlias(autoValue, manualValue, key, models.AliasSourceCorrection)
		if err := rs.store.InsertAlias(ctx, alias); err != nil {
			rs.logger.Warn("Failed to record learned alias",
				zap.String("observed", autoValue),
				zap.String("canonical", manualValue),
				zap.Error(err))
			continue
		}
		learned++
	}

	if learned > 0 {
		rs.refreshSynonyms(ctx)
	}
	return learned
}

// refreshSynonyms pushes the current alias set into the search index.
func (rs *ReviewService) refreshSynonyms(ctx context.Context) {
	if rs.searcher == nil {
		return
	}
	aliases, err := rs.store.ListAliases(ctx, synonymRefreshLimit)
	if err != nil {
		rs.logger.Warn("Failed to load aliases for synonym refresh", zap.Error(err))
		return
	}
	if err := rs.searcher.UpdateSynonyms(aliases); err != nil {
		rs.logger.Warn("Failed to update search synonyms", zap.Error(err))
	}
}

// reindex pushes the entry's current state into the search index.
// Index failures are logged; the store remains authoritative.
func (rs *ReviewService) reindex(review *models.NormalizationReview) {
	if rs.searcher == nil {
		return
	}
	if err := rs.searcher.IndexReview(review); err != nil {
		rs.logger.Warn("Failed to reindex review entry",
			zap.String("review_id", review.ID),
			zap.Error(err))
	}
}

// isCorrectableTag reports whether key names a tag reviewers may set.
func isCorrectableTag(key string) bool {
	validKeys := []string{
		parser.TagHouseNumber,
		parser.TagStreet,
		parser.TagUnit,
		parser.TagCity,
		parser.TagState,
		parser.TagPostcode,
	}

	for _, validKey := range validKeys {
		if key == validKey {
			return true
		}
	}
	return false
}
