package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordPurchase runs in its own transaction. It:
// a) Inserts the purchase, doing nothing if the event id was already recorded
// b) Adds one purchase and the amount to the listing's stats
// Both writes commit together or not at all.
func (r *Repository) RecordPurchase(ctx context.Context, p *models.Purchase) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO purchases (id, event_id, user_id, agent_id, listing_id, amount, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id
	`, p.ID, p.EventID, p.UserID, p.AgentID, p.ListingID, p.Amount, p.Currency, p.CreatedAt).Scan(&p.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	result, err := tx.Exec(ctx, `
		UPDATE listings SET purchases = purchases + 1, revenue = revenue + $2
		WHERE id = $1
	`, p.ListingID, p.Amount)
	if err != nil {
		return false, err
	}
	if result.RowsAffected() == 0 {
		return false, models.ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) HasPurchased(ctx context.Context, userID, agentID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM purchases WHERE user_id = $1 AND agent_id = $2)
	`, userID, agentID).Scan(&ok)
	return ok, err
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Purchase, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, user_id, agent_id, listing_id, amount, currency, created_at
		FROM purchases WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Purchase
	for rows.Next() {
		var p models.Purchase
		if err := rows.Scan(&p.ID, &p.EventID, &p.UserID, &p.AgentID, &p.ListingID, &p.Amount, &p.Currency, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
