package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
)

type ReviewRepo struct {
	pool *pgxpool.Pool
}

func NewReviewRepo(pool *pgxpool.Pool) *ReviewRepo {
	return &ReviewRepo{pool: pool}
}

// Create relies on the unique (user_id, listing_id) index to catch concurrent duplicates.
func (r *ReviewRepo) Create(ctx context.Context, rv *models.Review) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reviews (id, listing_id, agent_id, user_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rv.ID, rv.ListingID, rv.AgentID, rv.UserID, rv.Rating, rv.Comment, rv.CreatedAt)
	return mapErr(err, models.ErrDuplicateReview)
}

func (r *ReviewRepo) Exists(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM reviews WHERE user_id = $1 AND listing_id = $2)
	`, userID, listingID).Scan(&ok)
	return ok, err
}

func (r *ReviewRepo) ListByListing(ctx context.Context, listingID uuid.UUID) ([]*models.Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, listing_id, agent_id, user_id, rating, comment, created_at
		FROM reviews WHERE listing_id = $1
		ORDER BY created_at DESC
	`, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Review
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.ListingID, &rv.AgentID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &rv)
	}
	return list, rows.Err()
}
