package reviews

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
)

// Repository persists reviews. Create returns models.ErrDuplicateReview when the
// (user, listing) pair already has one.
type Repository interface {
	Create(ctx context.Context, r *models.Review) error
	Exists(ctx context.Context, userID, listingID uuid.UUID) (bool, error)
	ListByListing(ctx context.Context, listingID uuid.UUID) ([]*models.Review, error)
}

// Listings is the part of the listing store the aggregator writes to.
type Listings interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	SetRating(ctx context.Context, id uuid.UUID, r models.Rating) error
}

// Aggregator computes a listing's rating from its reviews.
type Aggregator interface {
	Recompute(ctx context.Context, listingID uuid.UUID) (models.Rating, error)
}

// ScanAggregator re-reads every review for the listing on each call.
type ScanAggregator struct {
	Reviews interface {
		ListByListing(ctx context.Context, listingID uuid.UUID) ([]*models.Review, error)
	}
}

func (a ScanAggregator) Recompute(ctx context.Context, listingID uuid.UUID) (models.Rating, error) {
	list, err := a.Reviews.ListByListing(ctx, listingID)
	if err != nil {
		return models.Rating{}, err
	}
	if len(list) == 0 {
		return models.Rating{}, nil
	}
	sum := 0
	for _, r := range list {
		sum += r.Rating
	}
	return models.Rating{Average: float64(sum) / float64(len(list)), Count: len(list)}, nil
}

type Service interface {
	Submit(ctx context.Context, userID, listingID uuid.UUID, rating int, comment string) (*models.Review, error)
	ListByListing(ctx context.Context, listingID uuid.UUID) ([]*models.Review, error)
}

type service struct {
	repo     Repository
	listings Listings
	agg      Aggregator
	now      func() time.Time
}

// NewService wires the review store. A nil aggregator falls back to ScanAggregator over repo.
func NewService(repo Repository, listings Listings, agg Aggregator) Service {
	if agg == nil {
		agg = ScanAggregator{Reviews: repo}
	}
	return &service{repo: repo, listings: listings, agg: agg, now: time.Now}
}

var _ Service = (*service)(nil)

// Submit records a review and persists the listing's recomputed rating before returning.
func (s *service) Submit(ctx context.Context, userID, listingID uuid.UUID, rating int, comment string) (*models.Review, error) {
	if rating < models.MinRating || rating > models.MaxRating {
		return nil, models.ErrInvalidRating
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, fmt.Errorf("%w: comment", models.ErrMissingRequiredField)
	}
	if utf8.RuneCountInString(comment) > models.MaxCommentLength {
		return nil, fmt.Errorf("%w: comment exceeds %d characters", models.ErrInvalidField, models.MaxCommentLength)
	}
	l, err := s.listings.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.Exists(ctx, userID, listingID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrDuplicateReview
	}

	r := &models.Review{
		ID:        uuid.New(),
		ListingID: l.ID,
		AgentID:   l.AgentID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}

	agg, err := s.agg.Recompute(ctx, l.ID)
	if err != nil {
		return nil, fmt.Errorf("recompute rating: %w", err)
	}
	if err := s.listings.SetRating(ctx, l.ID, agg); err != nil {
		return nil, fmt.Errorf("store rating: %w", err)
	}
	return r, nil
}

func (s *service) ListByListing(ctx context.Context, listingID uuid.UUID) ([]*models.Review, error) {
	if _, err := s.listings.Get(ctx, listingID); err != nil {
		return nil, err
	}
	return s.repo.ListByListing(ctx, listingID)
}
