package search

import (
	"testing"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/address-normalizer/app/models"
	"github.com/address-normalizer/internal/parser"
)

func TestNewReviewSearcher_Unreachable(t *testing.T) {
	config := SearchConfig{
		Host:      "http://127.0.0.1:1",
		APIKey:    "masterKey",
		IndexName: "reviews",
		Timeout:   2 * time.Second,
		MaxHits:   20,
	}

	logger, _ := zap.NewDevelopment()

	searcher, err := NewReviewSearcher(config, logger)
	assert.Error(t, err)
	assert.Nil(t, searcher)
}

func TestSearchConfig(t *testing.T) {
	config := SearchConfig{
		Host:      "http://localhost:7700",
		APIKey:    "masterKey",
		IndexName: "reviews",
		Timeout:   30 * time.Second,
		MaxHits:   20,
	}

	assert.Equal(t, "http://localhost:7700", config.Host)
	assert.Equal(t, "masterKey", config.APIKey)
	assert.Equal(t, "reviews", config.IndexName)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, 20, config.MaxHits)
}

func TestDocumentFromReview(t *testing.T) {
	result := &models.NormalizationResult{
		Raw:            "222 NW Pineapple Ave Suite A Unit B, Beachville, SC 75309",
		NormalizedText: "222 Northwest Pineapple Avenue Suite A Unit B, Beachville, Sc 75309",
		Tags: map[string]string{
			parser.TagHouseNumber: "222",
			parser.TagStreet:      "Northwest Pineapple Avenue",
			parser.TagUnit:        "Suite A",
			parser.TagCity:        "Beachville",
			parser.TagState:       "SC",
			parser.TagPostcode:    "75309",
		},
		Ambiguous:  true,
		Notes:      []string{`unit: kept "Suite A", dropped "Unit B"`},
		Status:     models.StatusAmbiguous,
		Confidence: 0.75,
		CreatedAt:  time.Now(),
	}

	review := models.NewNormalizationReview("rev-1", result)
	doc := DocumentFromReview(review)

	assert.Equal(t, "rev-1", doc.ID)
	assert.Equal(t, result.Raw, doc.RawAddress)
	assert.Equal(t, result.NormalizedText, doc.Normalized)
	assert.Equal(t, "Northwest Pineapple Avenue", doc.Street)
	assert.Equal(t, "Beachville", doc.City)
	assert.Equal(t, "SC", doc.State)
	assert.Equal(t, "75309", doc.Postcode)
	assert.Equal(t, models.ReviewStatusPending, doc.Status)
	assert.Equal(t, 0.75, doc.Confidence)
	assert.Equal(t, result.Notes, doc.Notes)
	assert.Equal(t, review.CreatedAt.Unix(), doc.CreatedAt)
}

func TestDocumentFromReview_ManualResultWins(t *testing.T) {
	auto := &models.NormalizationResult{
		Raw:            "789 Oak Dr, Smallville Califrnia, 98765",
		NormalizedText: "789 Oak Drive, Smallville Califrnia, 98765",
		Tags: map[string]string{
			parser.TagHouseNumber: "789",
			parser.TagStreet:      "Oak Drive",
			parser.TagCity:        "Smallville",
			parser.TagPostcode:    "98765",
		},
		Notes:      []string{`state: dropped "Califrnia" (closest match CA)`},
		Status:     models.StatusNeedsReview,
		Confidence: 0.42,
	}

	review := models.NewNormalizationReview("rev-2", auto)

	corrected := *auto
	corrected.Tags = map[string]string{
		parser.TagHouseNumber: "789",
		parser.TagStreet:      "Oak Drive",
		parser.TagCity:        "Smallville",
		parser.TagState:       "CA",
		parser.TagPostcode:    "98765",
	}
	corrected.Notes = nil
	corrected.Status = models.StatusNormalized
	corrected.Confidence = 1.0
	review.SetManualResult(corrected, "reviewer-7")

	doc := DocumentFromReview(review)

	assert.Equal(t, models.ReviewStatusApproved, doc.Status)
	assert.Equal(t, "CA", doc.State)
	assert.Empty(t, doc.Notes)
	// Confidence reflects the original flagged run, not the correction.
	assert.Equal(t, 0.42, doc.Confidence)
}

func TestFilterStatus(t *testing.T) {
	assert.Equal(t, `status = "pending"`, FilterStatus(models.ReviewStatusPending))
	assert.Equal(t, `status = "approved"`, FilterStatus(models.ReviewStatusApproved))
}

func TestParseHits(t *testing.T) {
	rs := &ReviewSearcher{}

	result := &meilisearch.SearchResponse{
		Hits: []interface{}{
			map[string]interface{}{
				"id":            "rev-1",
				"raw_address":   "158 S. Thomas Court 30008 90210",
				"normalized":    "158 South Thomas Court 30008 90210",
				"status":        "pending",
				"confidence":    0.57,
				"_rankingScore": 0.91,
			},
			"not-a-map",
			map[string]interface{}{
				"id": "rev-2",
			},
		},
	}

	hits := rs.parseHits(result)
	require.Len(t, hits, 2)

	assert.Equal(t, "rev-1", hits[0].ID)
	assert.Equal(t, "158 S. Thomas Court 30008 90210", hits[0].RawAddress)
	assert.Equal(t, "pending", hits[0].Status)
	assert.Equal(t, 0.57, hits[0].Confidence)
	assert.Equal(t, 0.91, hits[0].Score)

	assert.Equal(t, "rev-2", hits[1].ID)
	assert.Zero(t, hits[1].Score)
}

func TestClampLimit(t *testing.T) {
	rs := &ReviewSearcher{maxHits: 20}

	assert.Equal(t, 20, rs.clampLimit(0))
	assert.Equal(t, 20, rs.clampLimit(-5))
	assert.Equal(t, 20, rs.clampLimit(50))
	assert.Equal(t, 20, rs.clampLimit(20))
	assert.Equal(t, 10, rs.clampLimit(10))
}

func TestSynonymsFromAliases(t *testing.T) {
	aliases := []*models.LearnedAlias{
		models.NewLearnedAlias("Califrnia", "California", parser.TagState, models.AliasSourceCorrection),
		models.NewLearnedAlias("Pensylvania", "Pennsylvania", parser.TagState, models.AliasSourceCorrection),
		models.NewLearnedAlias("Main", "Main", parser.TagStreet, models.AliasSourceManual),
		nil,
	}

	weak := models.NewLearnedAlias("Vermnt", "Vermont", parser.TagState, models.AliasSourceCorrection)
	weak.UpdateConfidence(0.4)
	aliases = append(aliases, weak)

	synonyms := synonymsFromAliases(aliases)

	assert.Equal(t, map[string][]string{
		"califrnia":   {"california"},
		"pensylvania": {"pennsylvania"},
	}, synonyms)
}
