package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/address-normalizer/app/models"
	"github.com/address-normalizer/internal/parser"
	"go.uber.org/zap"
)

func newTestReviewService(store ReviewStore) *ReviewService {
	return NewReviewService(store, nil, zap.NewNop())
}

func TestReviewService_Approve(t *testing.T) {
	store := NewMemoryReviewStore()
	service := newTestReviewService(store)
	ctx := context.Background()

	if err := store.Insert(ctx, pendingReview("rev-1", "123 main st", 0.55)); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	review, err := service.Approve(ctx, "rev-1", "reviewer-7")
	if err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}
	if review.Status != models.ReviewStatusApproved {
		t.Errorf("Status = %q, want %q", review.Status, models.ReviewStatusApproved)
	}
	if review.ReviewerID == nil || *review.ReviewerID != "reviewer-7" {
		t.Errorf("ReviewerID = %v, want reviewer-7", review.ReviewerID)
	}

	if _, err := service.Approve(ctx, "rev-1", "reviewer-8"); !errors.Is(err, ErrReviewCompleted) {
		t.Errorf("second Approve error = %v, want ErrReviewCompleted", err)
	}
	if _, err := service.Approve(ctx, "missing", "reviewer-7"); !errors.Is(err, ErrReviewNotFound) {
		t.Errorf("Approve(missing) error = %v, want ErrReviewNotFound", err)
	}
}

func TestReviewService_Reject(t *testing.T) {
	store := NewMemoryReviewStore()
	service := newTestReviewService(store)
	ctx := context.Background()

	if err := store.Insert(ctx, pendingReview("rev-1", "123 main st", 0.3)); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	review, err := service.Reject(ctx, "rev-1", "reviewer-7")
	if err != nil {
		t.Fatalf("Reject returned error: %v", err)
	}
	if review.Status != models.ReviewStatusRejected {
		t.Errorf("Status = %q, want %q", review.Status, models.ReviewStatusRejected)
	}

	if _, err := service.Reject(ctx, "rev-1", "reviewer-8"); !errors.Is(err, ErrReviewCompleted) {
		t.Errorf("second Reject error = %v, want ErrReviewCompleted", err)
	}
}

func TestReviewService_Correct(t *testing.T) {
	store := NewMemoryReviewStore()
	service := newTestReviewService(store)
	ctx := context.Background()

	auto := &models.NormalizationResult{
		Raw:            "789 oak dr, smalvile california",
		NormalizedText: "789 Oak Drive, Smalvile California",
		Tags: map[string]string{
			parser.TagHouseNumber: "789",
			parser.TagStreet:      "Oak Drive",
			parser.TagCity:        "Smalvile",
		},
		Ambiguous:  true,
		Notes:      []string{`state "california" unresolved`},
		Status:     models.StatusNeedsReview,
		Confidence: 0.5,
		CreatedAt:  time.Now(),
	}
	if err := store.Insert(ctx, models.NewNormalizationReview("rev-c", auto)); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	corrected := map[string]string{
		parser.TagHouseNumber: "789",
		parser.TagStreet:      "Oak Drive",
		parser.TagCity:        "Smallville",
		parser.TagState:       "CA",
	}
	review, err := service.Correct(ctx, "rev-c", "reviewer-9", corrected)
	if err != nil {
		t.Fatalf("Correct returned error: %v", err)
	}

	if review.Status != models.ReviewStatusApproved {
		t.Errorf("Status = %q, want %q", review.Status, models.ReviewStatusApproved)
	}
	if review.ManualResult == nil {
		t.Fatal("ManualResult is nil after correction")
	}
	final := review.FinalResult()
	if final.Tag(parser.TagCity) != "Smallville" {
		t.Errorf("final city = %q, want Smallville", final.Tag(parser.TagCity))
	}
	if final.Status != models.StatusNormalized {
		t.Errorf("final Status = %q, want %q", final.Status, models.StatusNormalized)
	}
	if final.Confidence != 1.0 {
		t.Errorf("final Confidence = %v, want 1.0", final.Confidence)
	}
	if len(final.Notes) != 0 {
		t.Errorf("final Notes = %v, want none", final.Notes)
	}
	// The original auto result stays intact for later accuracy analysis.
	if review.AutoResult.Tag(parser.TagCity) != "Smalvile" {
		t.Errorf("auto city = %q, want Smalvile untouched", review.AutoResult.Tag(parser.TagCity))
	}

	// Only the changed, non-empty pair becomes an alias: the city typo.
	// Street is unchanged and the auto result had no state to observe.
	aliases, err := store.ListAliases(ctx, 10)
	if err != nil {
		t.Fatalf("ListAliases returned error: %v", err)
	}
	if len(aliases) != 1 {
		t.Fatalf("len(aliases) = %d, want 1", len(aliases))
	}
	if aliases[0].Observed != "Smalvile" || aliases[0].Canonical != "Smallville" {
		t.Errorf("alias = %q -> %q, want Smalvile -> Smallville", aliases[0].Observed, aliases[0].Canonical)
	}
	if aliases[0].Field != parser.TagCity {
		t.Errorf("alias field = %q, want %q", aliases[0].Field, parser.TagCity)
	}
	if aliases[0].Source != models.AliasSourceCorrection {
		t.Errorf("alias source = %q, want %q", aliases[0].Source, models.AliasSourceCorrection)
	}
}

func TestReviewService_CorrectValidation(t *testing.T) {
	store := NewMemoryReviewStore()
	service := newTestReviewService(store)
	ctx := context.Background()

	if err := store.Insert(ctx, pendingReview("rev-1", "123 main st", 0.5)); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	if _, err := service.Correct(ctx, "rev-1", "reviewer-9", nil); err == nil {
		t.Error("Correct(empty tags) returned nil error")
	}
	badTags := map[string]string{"addr:planet": "Earth"}
	if _, err := service.Correct(ctx, "rev-1", "reviewer-9", badTags); err == nil {
		t.Error("Correct(unknown tag key) returned nil error")
	}

	// Failed validation leaves the entry pending.
	review, err := service.GetReview(ctx, "rev-1")
	if err != nil {
		t.Fatalf("GetReview returned error: %v", err)
	}
	if !review.IsPending() {
		t.Errorf("Status = %q, want pending after rejected corrections", review.Status)
	}
}

func TestReviewService_ListValidation(t *testing.T) {
	store := NewMemoryReviewStore()
	service := newTestReviewService(store)
	ctx := context.Background()

	if _, _, err := service.ListReviews(ctx, "sideways", 10, 0); err == nil {
		t.Error("ListReviews(unknown status) returned nil error")
	}
	if _, _, err := service.ListReviews(ctx, models.ReviewStatusPending, 10, 0); err != nil {
		t.Errorf("ListReviews(pending) returned error: %v", err)
	}
	if _, _, err := service.ListReviews(ctx, "", 10, 0); err != nil {
		t.Errorf("ListReviews(all) returned error: %v", err)
	}
}

func TestReviewService_SearchUnconfigured(t *testing.T) {
	service := newTestReviewService(NewMemoryReviewStore())

	if _, err := service.SearchReviews("oak", "", 10); err == nil {
		t.Error("SearchReviews without a searcher returned nil error")
	}
}
