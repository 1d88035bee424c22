package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/address-normalizer/app/models"
	"github.com/address-normalizer/internal/parser"
)

func pendingReview(id, raw string, confidence float64) *models.NormalizationReview {
	result := &models.NormalizationResult{
		Raw:            raw,
		NormalizedText: raw,
		Tags:           map[string]string{parser.TagStreet: "Main Street"},
		Status:         models.StatusNeedsReview,
		Confidence:     confidence,
		CreatedAt:      time.Now(),
	}
	return models.NewNormalizationReview(id, result)
}

func TestMemoryReviewStore_InsertAndGet(t *testing.T) {
	store := NewMemoryReviewStore()
	ctx := context.Background()

	review := pendingReview("rev-1", "123 main st", 0.55)
	if err := store.Insert(ctx, review); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	got, err := store.GetByID(ctx, "rev-1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if got.RawAddress != "123 main st" {
		t.Errorf("RawAddress = %q, want %q", got.RawAddress, "123 main st")
	}
	if got.Status != models.ReviewStatusPending {
		t.Errorf("Status = %q, want %q", got.Status, models.ReviewStatusPending)
	}
}

func TestMemoryReviewStore_GetMissing(t *testing.T) {
	store := NewMemoryReviewStore()

	_, err := store.GetByID(context.Background(), "no-such-id")
	if !errors.Is(err, ErrReviewNotFound) {
		t.Errorf("GetByID error = %v, want ErrReviewNotFound", err)
	}
}

func TestMemoryReviewStore_Update(t *testing.T) {
	store := NewMemoryReviewStore()
	ctx := context.Background()

	review := pendingReview("rev-1", "123 main st", 0.55)
	if err := store.Insert(ctx, review); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	review.Approve("reviewer-7")
	if err := store.Update(ctx, review); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	got, err := store.GetByID(ctx, "rev-1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if got.Status != models.ReviewStatusApproved {
		t.Errorf("Status = %q, want %q", got.Status, models.ReviewStatusApproved)
	}
	if got.ReviewerID == nil || *got.ReviewerID != "reviewer-7" {
		t.Errorf("ReviewerID = %v, want reviewer-7", got.ReviewerID)
	}

	missing := pendingReview("rev-404", "nowhere", 0.2)
	if err := store.Update(ctx, missing); !errors.Is(err, ErrReviewNotFound) {
		t.Errorf("Update missing error = %v, want ErrReviewNotFound", err)
	}
}

func TestMemoryReviewStore_ListNewestFirst(t *testing.T) {
	store := NewMemoryReviewStore()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		review := pendingReview(fmt.Sprintf("rev-%d", i), fmt.Sprintf("%d elm st", i), 0.5)
		if err := store.Insert(ctx, review); err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}
	}

	reviews, total, err := store.List(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(reviews) != 3 {
		t.Fatalf("len(reviews) = %d, want 3", len(reviews))
	}
	if reviews[0].ID != "rev-3" || reviews[2].ID != "rev-1" {
		t.Errorf("order = [%s %s %s], want newest first", reviews[0].ID, reviews[1].ID, reviews[2].ID)
	}
}

func TestMemoryReviewStore_ListFilterAndPaging(t *testing.T) {
	store := NewMemoryReviewStore()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		review := pendingReview(fmt.Sprintf("rev-%d", i), fmt.Sprintf("%d oak ave", i), 0.5)
		if i%2 == 0 {
			review.Approve("reviewer-1")
		}
		if err := store.Insert(ctx, review); err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}
	}

	pending, total, err := store.List(ctx, models.ReviewStatusPending, 2, 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if total != 3 {
		t.Errorf("pending total = %d, want 3", total)
	}
	if len(pending) != 2 {
		t.Fatalf("len(pending) = %d, want 2 (limit)", len(pending))
	}
	if pending[0].ID != "rev-5" || pending[1].ID != "rev-3" {
		t.Errorf("page 1 = [%s %s], want [rev-5 rev-3]", pending[0].ID, pending[1].ID)
	}

	page2, _, err := store.List(ctx, models.ReviewStatusPending, 2, 2)
	if err != nil {
		t.Fatalf("List page 2 returned error: %v", err)
	}
	if len(page2) != 1 || page2[0].ID != "rev-1" {
		t.Errorf("page 2 = %v, want [rev-1]", page2)
	}

	empty, _, err := store.List(ctx, models.ReviewStatusPending, 2, 10)
	if err != nil {
		t.Fatalf("List past end returned error: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("len past end = %d, want 0", len(empty))
	}
}

func TestMemoryReviewStore_CountByStatus(t *testing.T) {
	store := NewMemoryReviewStore()
	ctx := context.Background()

	approved := pendingReview("rev-1", "1 pine rd", 0.5)
	approved.Approve("reviewer-1")
	rejected := pendingReview("rev-2", "2 pine rd", 0.3)
	rejected.Reject("reviewer-1")

	for _, review := range []*models.NormalizationReview{
		approved,
		rejected,
		pendingReview("rev-3", "3 pine rd", 0.5),
		pendingReview("rev-4", "4 pine rd", 0.5),
	} {
		if err := store.Insert(ctx, review); err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}
	}

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus returned error: %v", err)
	}
	if counts[models.ReviewStatusPending] != 2 {
		t.Errorf("pending = %d, want 2", counts[models.ReviewStatusPending])
	}
	if counts[models.ReviewStatusApproved] != 1 {
		t.Errorf("approved = %d, want 1", counts[models.ReviewStatusApproved])
	}
	if counts[models.ReviewStatusRejected] != 1 {
		t.Errorf("rejected = %d, want 1", counts[models.ReviewStatusRejected])
	}
}

func TestMemoryReviewStore_AliasUsageBump(t *testing.T) {
	store := NewMemoryReviewStore()
	ctx := context.Background()

	first := models.NewLearnedAlias("califrnia", "CA", parser.TagState, models.AliasSourceCorrection)
	if err := store.InsertAlias(ctx, first); err != nil {
		t.Fatalf("InsertAlias returned error: %v", err)
	}
	dup := models.NewLearnedAlias("califrnia", "CA", parser.TagState, models.AliasSourceCorrection)
	if err := store.InsertAlias(ctx, dup); err != nil {
		t.Fatalf("InsertAlias duplicate returned error: %v", err)
	}
	other := models.NewLearnedAlias("pensylvania", "PA", parser.TagState, models.AliasSourceCorrection)
	if err := store.InsertAlias(ctx, other); err != nil {
		t.Fatalf("InsertAlias returned error: %v", err)
	}

	aliases, err := store.ListAliases(ctx, 10)
	if err != nil {
		t.Fatalf("ListAliases returned error: %v", err)
	}
	if len(aliases) != 2 {
		t.Fatalf("len(aliases) = %d, want 2 (duplicate merged)", len(aliases))
	}
	if aliases[0].Observed != "califrnia" {
		t.Errorf("aliases[0].Observed = %q, want most-used first", aliases[0].Observed)
	}
	if aliases[0].UsageCount != 2 {
		t.Errorf("UsageCount = %d, want 2", aliases[0].UsageCount)
	}
}

func TestMemoryReviewStore_ListAliasesLimit(t *testing.T) {
	store := NewMemoryReviewStore()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		alias := models.NewLearnedAlias(fmt.Sprintf("obs-%d", i), "X", parser.TagCity, models.AliasSourceManual)
		if err := store.InsertAlias(ctx, alias); err != nil {
			t.Fatalf("InsertAlias returned error: %v", err)
		}
	}

	aliases, err := store.ListAliases(ctx, 2)
	if err != nil {
		t.Fatalf("ListAliases returned error: %v", err)
	}
	if len(aliases) != 2 {
		t.Errorf("len(aliases) = %d, want 2", len(aliases))
	}
}
