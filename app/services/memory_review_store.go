package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/address-normalizer/app/models"
)

// MemoryReviewStore keeps the review queue in process memory. It backs
// single-node deployments and tests; entries vanish on restart.
type MemoryReviewStore struct {
	reviews map[string]*models.NormalizationReview
	order   []string // insertion order, oldest first
	aliases map[string]*models.LearnedAlias
	mu      sync.RWMutex
}

// NewMemoryReviewStore creates an empty in-memory review store.
func NewMemoryReviewStore() *MemoryReviewStore {
	return &MemoryReviewStore{
		reviews: make(map[string]*models.NormalizationReview),
		aliases: make(map[string]*models.LearnedAlias),
	}
}

// Insert adds a new review entry.
func (mrs *MemoryReviewStore) Insert(ctx context.Context, review *models.NormalizationReview) error {
	mrs.mu.Lock()
	defer mrs.mu.Unlock()

	if _, exists := mrs.reviews[review.ID]; !exists {
		mrs.order = append(mrs.order, review.ID)
	}
	mrs.reviews[review.ID] = review
	return nil
}

// GetByID returns the review with the given ID.
func (mrs *MemoryReviewStore) GetByID(ctx context.Context, id string) (*models.NormalizationReview, error) {
	mrs.mu.RLock()
	defer mrs.mu.RUnlock()

	review, exists := mrs.reviews[id]
	if !exists {
		return nil, ErrReviewNotFound
	}
	return review, nil
}

// Update replaces the stored review matched by ID.
func (mrs *MemoryReviewStore) Update(ctx context.Context, review *models.NormalizationReview) error {
	mrs.mu.Lock()
	defer mrs.mu.Unlock()

	if _, exists := mrs.reviews[review.ID]; !exists {
		return ErrReviewNotFound
	}
	mrs.reviews[review.ID] = review
	return nil
}

// List returns reviews newest-first, optionally filtered by status.
func (mrs *MemoryReviewStore) List(ctx context.Context, status string, limit, offset int) ([]*models.NormalizationReview, int64, error) {
	mrs.mu.RLock()
	defer mrs.mu.RUnlock()

	// Walk insertion order backwards so the newest entries come first.
	matched := make([]*models.NormalizationReview, 0, len(mrs.order))
	for i := len(mrs.order) - 1; i >= 0; i-- {
		review := mrs.reviews[mrs.order[i]]
		if status != "" && review.Status != status {
			continue
		}
		matched = append(matched, review)
	}

	total := int64(len(matched))
	if offset >= len(matched) {
		return []*models.NormalizationReview{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

// CountByStatus returns entry counts keyed by review status.
func (mrs *MemoryReviewStore) CountByStatus(ctx context.Context) (map[string]int64, error) {
	mrs.mu.RLock()
	defer mrs.mu.RUnlock()

	counts := make(map[string]int64)
	for _, review := range mrs.reviews {
		counts[review.Status]++
	}
	return counts, nil
}

// InsertAlias records a learned alias, bumping usage on duplicates.
func (mrs *MemoryReviewStore) InsertAlias(ctx context.Context, alias *models.LearnedAlias) error {
	mrs.mu.Lock()
	defer mrs.mu.Unlock()

	key := aliasKey(alias)
	if existing, exists := mrs.aliases[key]; exists {
		existing.UpdateUsage()
		return nil
	}
	mrs.aliases[key] = alias
	return nil
}

// ListAliases returns up to limit aliases, most used first.
func (mrs *MemoryReviewStore) ListAliases(ctx context.Context, limit int) ([]*models.LearnedAlias, error) {
	mrs.mu.RLock()
	defer mrs.mu.RUnlock()

	aliases := make([]*models.LearnedAlias, 0, len(mrs.aliases))
	for _, alias := range mrs.aliases {
		aliases = append(aliases, alias)
	}
	sort.Slice(aliases, func(i, j int) bool {
		return aliases[i].UsageCount > aliases[j].UsageCount
	})
	if limit > 0 && limit < len(aliases) {
		aliases = aliases[:limit]
	}
	return aliases, nil
}

// aliasKey identifies an alias by its observed/canonical/field triple.
func aliasKey(alias *models.LearnedAlias) string {
	return strings.ToLower(alias.Observed) + "|" + strings.ToLower(alias.Canonical) + "|" + alias.Field
}
