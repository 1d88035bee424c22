package services

import (
	"context"
	"errors"

	"github.com/address-normalizer/app/models"
)

// ErrReviewNotFound is returned when a review ID does not exist in the store.
var ErrReviewNotFound = errors.New("review not found")

// ReviewStore persists review queue entries and learned aliases.
// The store is the source of truth; the search index is a projection
// rebuilt from it.
type ReviewStore interface {
	// Insert adds a new review entry. The caller assigns the ID.
	Insert(ctx context.Context, review *models.NormalizationReview) error

	// GetByID returns the review with the given ID, or ErrReviewNotFound.
	GetByID(ctx context.Context, id string) (*models.NormalizationReview, error)

	// Update replaces the stored review with the given one, matched by ID.
	Update(ctx context.Context, review *models.NormalizationReview) error

	// List returns reviews newest-first, optionally filtered by status
	// (empty status means all), along with the total count for the filter.
	List(ctx context.Context, status string, limit, offset int) ([]*models.NormalizationReview, int64, error)

	// CountByStatus returns entry counts keyed by review status.
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// InsertAlias records a learned alias. Re-inserting the same
	// observed/canonical/field triple bumps its usage count.
	InsertAlias(ctx context.Context, alias *models.LearnedAlias) error

	// ListAliases returns up to limit aliases, most used first.
	ListAliases(ctx context.Context, limit int) ([]*models.LearnedAlias, error)
}
