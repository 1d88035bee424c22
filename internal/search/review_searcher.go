package search

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/address-normalizer/app/models"
	"github.com/address-normalizer/internal/parser"
	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

// ReviewSearcher maintains a Meilisearch index of review-queue entries so
// reviewers can find flagged addresses by text. The review store stays
// authoritative; the index is a disposable projection.
type ReviewSearcher struct {
	client    meilisearch.ServiceManager
	logger    *zap.Logger
	indexName string
	maxHits   int
}

// SearchConfig holds the Meilisearch connection settings.
type SearchConfig struct {
	Host      string
	APIKey    string
	IndexName string
	Timeout   time.Duration
	MaxHits   int
}

// NewReviewSearcher connects to Meilisearch and verifies it is reachable.
func NewReviewSearcher(config SearchConfig, logger *zap.Logger) (*ReviewSearcher, error) {
	client := newSearchClient(config.Host, config.APIKey, config.Timeout)

	if _, err := client.Health(); err != nil {
		return nil, fmt.Errorf("meilisearch unreachable: %w", err)
	}

	maxHits := config.MaxHits
	if maxHits <= 0 {
		maxHits = 20
	}

	rs := &ReviewSearcher{
		client:    client,
		logger:    logger,
		indexName: config.IndexName,
		maxHits:   maxHits,
	}

	return rs, nil
}

// ReviewDocument is the flattened projection of one review entry. Address
// tags become top-level fields so they are searchable and filterable
// without nesting.
type ReviewDocument struct {
	ID         string   `json:"id"`
	RawAddress string   `json:"raw_address"`
	Normalized string   `json:"normalized"`
	Street     string   `json:"street"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	Postcode   string   `json:"postcode"`
	Status     string   `json:"status"`
	Confidence float64  `json:"confidence"`
	Notes      []string `json:"notes,omitempty"`
	CreatedAt  int64    `json:"created_at"`
}

// DocumentFromReview flattens a review entry for indexing. When a reviewer
// has corrected the entry, the corrected tags win.
func DocumentFromReview(review *models.NormalizationReview) ReviewDocument {
	result := review.FinalResult()

	return ReviewDocument{
		ID:         review.ID,
		RawAddress: review.RawAddress,
		Normalized: review.NormalizedText,
		Street:     result.Tag(parser.TagStreet),
		City:       result.Tag(parser.TagCity),
		State:      result.Tag(parser.TagState),
		Postcode:   result.Tag(parser.TagPostcode),
		Status:     review.Status,
		Confidence: review.Confidence,
		Notes:      result.Notes,
		CreatedAt:  review.CreatedAt.Unix(),
	}
}

// ReviewHit is one search result row.
type ReviewHit struct {
	ID         string  `json:"id"`
	RawAddress string  `json:"raw_address"`
	Normalized string  `json:"normalized"`
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
	Score      float64 `json:"score"`
}

// Search finds review entries matching the query text.
func (rs *ReviewSearcher) Search(query string, limit int) ([]ReviewHit, error) {
	if query == "" {
		return nil, errors.New("query must not be empty")
	}

	index := rs.client.Index(rs.indexName)

	searchReq := &meilisearch.SearchRequest{
		Limit:            int64(rs.clampLimit(limit)),
		ShowRankingScore: true,
	}

	result, err := index.Search(query, searchReq)
	if err != nil {
		return nil, fmt.Errorf("review search failed: %w", err)
	}

	return rs.parseHits(result), nil
}

// SearchByStatus restricts the search to one workflow state. An empty query
// lists entries in that state by index order.
func (rs *ReviewSearcher) SearchByStatus(query, status string, limit int) ([]ReviewHit, error) {
	index := rs.client.Index(rs.indexName)

	searchReq := &meilisearch.SearchRequest{
		Limit:            int64(rs.clampLimit(limit)),
		Filter:           FilterStatus(status),
		ShowRankingScore: true,
	}

	result, err := index.Search(query, searchReq)
	if err != nil {
		return nil, fmt.Errorf("review search failed: %w", err)
	}

	return rs.parseHits(result), nil
}

// IndexReview inserts or refreshes one review document. Documents share the
// review ID, so re-indexing after a status change overwrites in place.
func (rs *ReviewSearcher) IndexReview(review *models.NormalizationReview) error {
	index := rs.client.Index(rs.indexName)

	doc := DocumentFromReview(review)
	task, err := index.AddDocuments([]ReviewDocument{doc}, "id")
	if err != nil {
		return fmt.Errorf("review indexing failed: %w", err)
	}

	rs.logger.Debug("Indexed review",
		zap.String("review_id", review.ID),
		zap.String("status", review.Status),
		zap.Int64("task_uid", task.TaskUID))
	return nil
}

// IndexReviews bulk-loads review documents in chunks of 1000. Used to
// rebuild the projection from the authoritative store.
func (rs *ReviewSearcher) IndexReviews(reviews []*models.NormalizationReview) error {
	if len(reviews) == 0 {
		return errors.New("no reviews to index")
	}

	index := rs.client.Index(rs.indexName)

	documents := make([]ReviewDocument, 0, len(reviews))
	for _, review := range reviews {
		documents = append(documents, DocumentFromReview(review))
	}

	batchSize := 1000
	for i := 0; i < len(documents); i += batchSize {
		end := i + batchSize
		if end > len(documents) {
			end = len(documents)
		}

		batch := documents[i:end]
		task, err := index.AddDocuments(batch, "id")
		if err != nil {
			return fmt.Errorf("indexing batch %d-%d failed: %w", i, end, err)
		}

		rs.logger.Info("Indexed review batch",
			zap.Int("from", i),
			zap.Int("to", end),
			zap.Int64("task_uid", task.TaskUID))
	}

	rs.logger.Info("Review backfill complete", zap.Int("total_documents", len(documents)))
	return nil
}

// BuildIndexes applies the index configuration for review documents.
func (rs *ReviewSearcher) BuildIndexes() error {
	index := rs.client.Index(rs.indexName)

	searchableAttrs := []string{"raw_address", "normalized", "street", "city", "state", "notes"}
	filterableAttrs := []string{"status", "state", "city", "confidence"}
	sortableAttrs := []string{"created_at", "confidence"}
	rankingRules := []string{"words", "typo", "proximity", "attribute", "sort", "exactness"}
	synonyms := map[string][]string{
		"st":   {"street", "saint"},
		"ave":  {"avenue"},
		"blvd": {"boulevard"},
		"rd":   {"road"},
		"dr":   {"drive"},
		"apt":  {"apartment"},
	}
	enabled := true
	oneTypo := int64(3)
	twoTypos := int64(7)

	task, err := index.UpdateSettings(&meilisearch.Settings{
		SearchableAttributes: searchableAttrs,
		FilterableAttributes: filterableAttrs,
		SortableAttributes:   sortableAttrs,
		RankingRules:         rankingRules,
		Synonyms:             synonyms,
		TypoTolerance: &meilisearch.TypoTolerance{
			Enabled: enabled,
			MinWordSizeForTypos: meilisearch.MinWordSizeForTypos{
				OneTypo:  oneTypo,
				TwoTypos: twoTypos,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("index settings update failed: %w", err)
	}

	rs.logger.Info("Review index configured", zap.Int64("task_uid", task.TaskUID))
	return nil
}

// UpdateSynonyms merges reviewer-confirmed aliases into the query-time
// synonym map, so searches for a misspelling find its corrections.
func (rs *ReviewSearcher) UpdateSynonyms(aliases []*models.LearnedAlias) error {
	synonyms := synonymsFromAliases(aliases)
	if len(synonyms) == 0 {
		return nil
	}

	index := rs.client.Index(rs.indexName)

	task, err := index.UpdateSynonyms(&synonyms)
	if err != nil {
		return fmt.Errorf("synonym update failed: %w", err)
	}

	rs.logger.Info("Search synonyms updated",
		zap.Int("terms", len(synonyms)),
		zap.Int64("task_uid", task.TaskUID))
	return nil
}

// synonymsFromAliases keeps only high-confidence aliases and folds them to
// lowercase, the form Meilisearch matches against.
func synonymsFromAliases(aliases []*models.LearnedAlias) map[string][]string {
	synonyms := make(map[string][]string)

	for _, alias := range aliases {
		if alias == nil || !alias.IsHighConfidence() {
			continue
		}
		observed := strings.ToLower(strings.TrimSpace(alias.Observed))
		canonical := strings.ToLower(strings.TrimSpace(alias.Canonical))
		if observed == "" || canonical == "" || observed == canonical {
			continue
		}
		synonyms[observed] = append(synonyms[observed], canonical)
	}

	return synonyms
}

// parseHits converts raw Meilisearch hits into ReviewHit rows.
func (rs *ReviewSearcher) parseHits(result *meilisearch.SearchResponse) []ReviewHit {
	var hits []ReviewHit

	for _, hit := range result.Hits {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}

		h := ReviewHit{}

		if id, ok := hitMap["id"].(string); ok {
			h.ID = id
		}
		if raw, ok := hitMap["raw_address"].(string); ok {
			h.RawAddress = raw
		}
		if normalized, ok := hitMap["normalized"].(string); ok {
			h.Normalized = normalized
		}
		if status, ok := hitMap["status"].(string); ok {
			h.Status = status
		}
		if confidence, ok := hitMap["confidence"].(float64); ok {
			h.Confidence = confidence
		}
		if score, ok := hitMap["_rankingScore"].(float64); ok {
			h.Score = score
		}

		hits = append(hits, h)
	}

	return hits
}

// clampLimit keeps the page size positive and within the configured cap.
func (rs *ReviewSearcher) clampLimit(limit int) int {
	if limit <= 0 || limit > rs.maxHits {
		return rs.maxHits
	}
	return limit
}
