package models

import (
	"time"
)

// Review workflow states.
const (
	ReviewStatusPending  = "pending"
	ReviewStatusInReview = "in_review"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// NormalizationReview is a queue entry for a result that did not come back
// fully normalized.
type NormalizationReview struct {
	ID             string               `bson:"_id" json:"id"`                                           // assigned by the service
	RawAddress     string               `bson:"raw_address" json:"raw_address"`                          // input as received
	NormalizedText string               `bson:"normalized_text" json:"normalized_text"`                  // cleaned full text
	AutoResult     NormalizationResult  `bson:"auto_result" json:"auto_result"`                          // what the pipeline produced
	Confidence     float64              `bson:"confidence" json:"confidence"`                            // copied for filtering
	Status         string               `bson:"status" json:"status"`                                    // review workflow state
	ManualResult   *NormalizationResult `bson:"manual_result,omitempty" json:"manual_result,omitempty"`  // reviewer-corrected result
	ReviewerID     *string              `bson:"reviewer_id,omitempty" json:"reviewer_id,omitempty"`      // who resolved it
	ReviewedAt     *time.Time           `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`      // when it was resolved
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`                            // when it was queued
}

// NewNormalizationReview queues a pipeline result for human review.
func NewNormalizationReview(id string, result *NormalizationResult) *NormalizationReview {
	return &NormalizationReview{
		ID:             id,
		RawAddress:     result.Raw,
		NormalizedText: result.NormalizedText,
		AutoResult:     *result,
		Confidence:     result.Confidence,
		Status:         ReviewStatusPending,
		CreatedAt:      time.Now(),
	}
}

// IsValidStatus reports whether Status holds one of the known values.
func (nr *NormalizationReview) IsValidStatus() bool {
	validStatuses := []string{
		ReviewStatusPending,
		ReviewStatusInReview,
		ReviewStatusApproved,
		ReviewStatusRejected,
	}

	for _, validStatus := range validStatuses {
		if nr.Status == validStatus {
			return true
		}
	}
	return false
}

// Approve accepts the automatic result as-is.
func (nr *NormalizationReview) Approve(reviewerID string) {
	nr.Status = ReviewStatusApproved
	nr.ReviewerID = &reviewerID
	now := time.Now()
	nr.ReviewedAt = &now
}

// Reject discards the automatic result.
func (nr *NormalizationReview) Reject(reviewerID string) {
	nr.Status = ReviewStatusRejected
	nr.ReviewerID = &reviewerID
	now := time.Now()
	nr.ReviewedAt = &now
}

// SetManualResult replaces the automatic result with a corrected one and
// closes the review as approved.
func (nr *NormalizationReview) SetManualResult(result NormalizationResult, reviewerID string) {
	nr.ManualResult = &result
	nr.Status = ReviewStatusApproved
	nr.ReviewerID = &reviewerID
	now := time.Now()
	nr.ReviewedAt = &now
}

// FinalResult returns the reviewer's correction when one exists, otherwise
// the automatic result.
func (nr *NormalizationReview) FinalResult() *NormalizationResult {
	if nr.ManualResult != nil {
		return nr.ManualResult
	}
	return &nr.AutoResult
}

// IsPending reports whether the entry still waits for a reviewer.
func (nr *NormalizationReview) IsPending() bool {
	return nr.Status == ReviewStatusPending
}

// IsCompleted reports whether the entry has been resolved either way.
func (nr *NormalizationReview) IsCompleted() bool {
	return nr.Status == ReviewStatusApproved || nr.Status == ReviewStatusRejected
}
