package models

import (
	"time"

	"github.com/address-normalizer/internal/parser"
)

// Status values carried by a NormalizationResult.
const (
	StatusNormalized  = "normalized"   // every extracted field validated
	StatusAmbiguous   = "ambiguous"    // usable, but conflicting or incomplete evidence
	StatusNeedsReview = "needs_review" // too weak to trust without a human
	StatusUnparsed    = "unparsed"     // nothing usable extracted
)

// NormalizationResult is the stored and served form of one pipeline run.
type NormalizationResult struct {
	Raw            string            `bson:"raw" json:"raw"`                          // input as received
	NormalizedText string            `bson:"normalized_text" json:"normalized_text"`  // cleaned full text
	Tags           map[string]string `bson:"tags" json:"tags"`                        // addr:* key/value pairs
	Ambiguous      bool              `bson:"ambiguous" json:"ambiguous"`              // conflicting evidence seen
	Notes          []string          `bson:"notes,omitempty" json:"notes,omitempty"`  // kept/dropped evidence trail
	Status         string            `bson:"status" json:"status"`                    // one of the Status* values
	Confidence     float64           `bson:"confidence" json:"confidence"`            // 0.0 - 1.0
	ProcessingMs   int64             `bson:"processing_ms" json:"processing_ms"`      // pipeline wall time
	CreatedAt      time.Time         `bson:"created_at" json:"created_at"`            // when the run finished
}

// NewNormalizationResult flattens a pipeline result into the stored shape.
func NewNormalizationResult(res *parser.Result, elapsed time.Duration) *NormalizationResult {
	return &NormalizationResult{
		Raw:            res.Raw,
		NormalizedText: res.Normalized,
		Tags:           res.Address.Tags(),
		Ambiguous:      res.Address.Ambiguous,
		Notes:          res.Address.Notes,
		Status:         string(res.Status),
		Confidence:     res.Confidence,
		ProcessingMs:   elapsed.Milliseconds(),
		CreatedAt:      time.Now(),
	}
}

// Tag returns one addr:* value, or "" when the pipeline did not produce it.
func (nr *NormalizationResult) Tag(key string) string {
	if nr.Tags == nil {
		return ""
	}
	return nr.Tags[key]
}

// IsValidStatus reports whether Status holds one of the known values.
func (nr *NormalizationResult) IsValidStatus() bool {
	validStatuses := []string{
		StatusNormalized,
		StatusAmbiguous,
		StatusNeedsReview,
		StatusUnparsed,
	}

	for _, validStatus := range validStatuses {
		if nr.Status == validStatus {
			return true
		}
	}
	return false
}

// NeedsReview reports whether the result belongs in the review queue.
func (nr *NormalizationResult) NeedsReview() bool {
	return nr.Status != StatusNormalized
}
