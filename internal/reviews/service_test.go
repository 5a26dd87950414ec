package reviews

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/marketplace"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/store"
)

// fixture seeds one active listing and returns a service over the shared memory store.
func fixture(t *testing.T) (Service, marketplace.Service, *models.Listing) {
	t.Helper()
	mem := store.NewMemory()
	l := &models.Listing{
		ID:        uuid.New(),
		AgentID:   uuid.New(),
		SellerID:  uuid.New(),
		Title:     "Tutor",
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if err := mem.Listings().Create(context.Background(), l); err != nil {
		t.Fatal(err)
	}
	listings := marketplace.NewService(mem.Listings())
	return NewService(mem.Reviews(), listings, nil), listings, l
}

func TestSubmit_RecomputesAverage(t *testing.T) {
	svc, listings, l := fixture(t)
	for _, rating := range []int{5, 4, 5} {
		if _, err := svc.Submit(context.Background(), uuid.New(), l.ID, rating, "good"); err != nil {
			t.Fatalf("submit %d: %v", rating, err)
		}
	}
	got, _ := listings.Get(context.Background(), l.ID)
	if got.Rating.Count != 3 {
		t.Errorf("expected 3 reviews, got %d", got.Rating.Count)
	}
	if math.Abs(got.Rating.Average-14.0/3.0) > 1e-9 {
		t.Errorf("expected average 4.667, got %v", got.Rating.Average)
	}
}

func TestSubmit_DuplicateLeavesRatingUnchanged(t *testing.T) {
	svc, listings, l := fixture(t)
	user := uuid.New()
	if _, err := svc.Submit(context.Background(), user, l.ID, 2, "meh"); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Submit(context.Background(), user, l.ID, 5, "changed my mind")
	if !errors.Is(err, models.ErrDuplicateReview) {
		t.Fatalf("expected duplicate review, got %v", err)
	}
	got, _ := listings.Get(context.Background(), l.ID)
	if got.Rating.Count != 1 || got.Rating.Average != 2 {
		t.Errorf("rating changed after duplicate: %+v", got.Rating)
	}
}

func TestSubmit_Validation(t *testing.T) {
	svc, _, l := fixture(t)
	tests := []struct {
		name      string
		listingID uuid.UUID
		rating    int
		comment   string
		want      error
	}{
		{"rating too low", l.ID, 0, "x", models.ErrInvalidRating},
		{"rating too high", l.ID, 6, "x", models.ErrInvalidRating},
		{"empty comment", l.ID, 3, "   ", models.ErrMissingRequiredField},
		{"long comment", l.ID, 3, strings.Repeat("é", models.MaxCommentLength+1), models.ErrInvalidField},
		{"unknown listing", uuid.New(), 3, "x", models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Submit(context.Background(), uuid.New(), tt.listingID, tt.rating, tt.comment); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSubmit_CommentAtLimitAccepted(t *testing.T) {
	svc, _, l := fixture(t)
	rv, err := svc.Submit(context.Background(), uuid.New(), l.ID, 4, strings.Repeat("é", models.MaxCommentLength))
	if err != nil {
		t.Fatal(err)
	}
	if rv.AgentID != l.AgentID || rv.ListingID != l.ID {
		t.Errorf("review not linked to listing: %+v", rv)
	}
}

func TestListByListing(t *testing.T) {
	svc, _, l := fixture(t)
	_, _ = svc.Submit(context.Background(), uuid.New(), l.ID, 3, "ok")
	list, err := svc.ListByListing(context.Background(), l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 review, got %d", len(list))
	}
	if _, err := svc.ListByListing(context.Background(), uuid.New()); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestScanAggregator_Empty(t *testing.T) {
	agg := ScanAggregator{Reviews: store.NewMemory().Reviews()}
	r, err := agg.Recompute(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if r.Count != 0 || r.Average != 0 {
		t.Errorf("expected zero rating, got %+v", r)
	}
}
