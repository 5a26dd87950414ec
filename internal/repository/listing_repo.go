package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/pricing"
)

type ListingRepo struct {
	pool *pgxpool.Pool
}

func NewListingRepo(pool *pgxpool.Pool) *ListingRepo {
	return &ListingRepo{pool: pool}
}

const listingColumns = `id, agent_id, seller_id, title, description, category, tags,
	pricing_type, pricing_amount, pricing_currency, rating_average, rating_count,
	is_active, purchases, revenue, created_at, updated_at`

func scanListing(row pgx.Row) (*models.Listing, error) {
	var l models.Listing
	err := row.Scan(&l.ID, &l.AgentID, &l.SellerID, &l.Title, &l.Description, &l.Category, &l.Tags,
		&l.Pricing.Type, &l.Pricing.Amount, &l.Pricing.Currency, &l.Rating.Average, &l.Rating.Count,
		&l.IsActive, &l.Purchases, &l.Revenue, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, mapErr(err, nil)
	}
	l.Pricing = pricing.FromStored(l.Pricing)
	return &l, nil
}

// Create relies on the unique index on agent_id to reject a second listing for one agent.
func (r *ListingRepo) Create(ctx context.Context, l *models.Listing) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO listings (id, agent_id, seller_id, title, description, category, tags,
			pricing_type, pricing_amount, pricing_currency, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, l.ID, l.AgentID, l.SellerID, l.Title, l.Description, l.Category, l.Tags,
		l.Pricing.Type, l.Pricing.Amount, l.Pricing.Currency, l.IsActive, l.CreatedAt, l.UpdatedAt)
	return mapErr(err, models.ErrAlreadyListed)
}

func (r *ListingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return scanListing(r.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id))
}

func (r *ListingRepo) FindByAgentID(ctx context.Context, agentID uuid.UUID) (*models.Listing, error) {
	return scanListing(r.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE agent_id = $1`, agentID))
}

func (r *ListingRepo) List(ctx context.Context, f models.ListingFilter) ([]*models.Listing, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !f.IncludeInactive {
		where = append(where, "is_active")
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(f.Category))
	}
	if f.SellerID != uuid.Nil {
		where = append(where, "seller_id = "+arg(f.SellerID))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		p := arg("%" + q + "%")
		where = append(where, "(title ILIKE "+p+" OR description ILIKE "+p+" OR "+arg(strings.ToLower(q))+" = ANY(SELECT lower(t) FROM unnest(tags) t))")
	}

	query := `SELECT ` + listingColumns + ` FROM listings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if f.Sort == models.SortRating {
		query += ` ORDER BY rating_average DESC, created_at DESC`
	} else {
		query += ` ORDER BY created_at DESC`
	}
	if f.Limit > 0 {
		query += ` LIMIT ` + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += ` OFFSET ` + arg(f.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func (r *ListingRepo) Update(ctx context.Context, l *models.Listing) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE listings SET title = $2, description = $3, category = $4, tags = $5,
			pricing_type = $6, pricing_amount = $7, pricing_currency = $8, is_active = $9, updated_at = $10
		WHERE id = $1
	`, l.ID, l.Title, l.Description, l.Category, l.Tags,
		l.Pricing.Type, l.Pricing.Amount, l.Pricing.Currency, l.IsActive, l.UpdatedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *ListingRepo) ApplyProjection(ctx context.Context, id uuid.UUID, title, description string, p pricing.Pricing) (*models.Listing, error) {
	return scanListing(r.pool.QueryRow(ctx, `
		UPDATE listings SET title = $2, description = $3,
			pricing_type = $4, pricing_amount = $5, pricing_currency = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+listingColumns, id, title, description, p.Type, p.Amount, p.Currency))
}

func (r *ListingRepo) SetRating(ctx context.Context, id uuid.UUID, rating models.Rating) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE listings SET rating_average = $2, rating_count = $3 WHERE id = $1
	`, id, rating.Average, rating.Count)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *ListingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
