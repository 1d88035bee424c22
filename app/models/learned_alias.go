package models

import (
	"time"

	"github.com/address-normalizer/internal/parser"
)

// Alias sources.
const (
	AliasSourceManual     = "manual"
	AliasSourceCorrection = "review_correction"
)

// LearnedAlias records a reviewer-confirmed mapping from the value the
// pipeline produced to the value it should have produced. Accumulated
// aliases feed table updates and the search synonym list.
type LearnedAlias struct {
	Observed   string    `bson:"observed" json:"observed"`       // value the pipeline emitted or dropped
	Canonical  string    `bson:"canonical" json:"canonical"`     // corrected value
	Field      string    `bson:"field" json:"field"`             // addr:* key the correction applies to
	Confidence float64   `bson:"confidence" json:"confidence"`   // starts at 0.8, adjusted over time
	Source     string    `bson:"source" json:"source"`           // manual or review_correction
	UsageCount int       `bson:"usage_count" json:"usage_count"` // times this alias was applied
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	LastUsed   time.Time `bson:"last_used" json:"last_used"`
}

// NewLearnedAlias records a fresh correction.
func NewLearnedAlias(observed, canonical, field, source string) *LearnedAlias {
	return &LearnedAlias{
		Observed:   observed,
		Canonical:  canonical,
		Field:      field,
		Confidence: 0.8,
		Source:     source,
		UsageCount: 1,
		CreatedAt:  time.Now(),
		LastUsed:   time.Now(),
	}
}

// IsValidSource reports whether Source holds one of the known values.
func (la *LearnedAlias) IsValidSource() bool {
	validSources := []string{
		AliasSourceManual,
		AliasSourceCorrection,
	}

	for _, validSource := range validSources {
		if la.Source == validSource {
			return true
		}
	}
	return false
}

// IsValidField reports whether Field names one of the produced addr:* keys.
func (la *LearnedAlias) IsValidField() bool {
	validFields := []string{
		parser.TagHouseNumber,
		parser.TagStreet,
		parser.TagUnit,
		parser.TagCity,
		parser.TagState,
		parser.TagPostcode,
	}

	for _, validField := range validFields {
		if la.Field == validField {
			return true
		}
	}
	return false
}

// UpdateUsage records one more application of the alias.
func (la *LearnedAlias) UpdateUsage() {
	la.UsageCount++
	la.LastUsed = time.Now()
}

// UpdateConfidence adjusts the confidence, ignoring out-of-range values.
func (la *LearnedAlias) UpdateConfidence(newConfidence float64) {
	if newConfidence >= 0.0 && newConfidence <= 1.0 {
		la.Confidence = newConfidence
	}
}

// IsHighConfidence reports whether the alias is trusted enough to apply
// automatically.
func (la *LearnedAlias) IsHighConfidence() bool {
	return la.Confidence >= 0.8
}

// IsFrequentlyUsed reports whether the alias has been applied at least
// threshold times.
func (la *LearnedAlias) IsFrequentlyUsed(threshold int) bool {
	return la.UsageCount >= threshold
}
