package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/shopspring/decimal"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
)

// GrantPurchaseArgs is the job enqueued for each access-granting payment event.
type GrantPurchaseArgs struct {
	EventID     string    `json:"event_id"`
	UserID      uuid.UUID `json:"user_id"`
	AgentID     uuid.UUID `json:"agent_id"`
	ListingID   uuid.UUID `json:"listing_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
}

func (GrantPurchaseArgs) Kind() string { return "grant_purchase" }

func (GrantPurchaseArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: 10,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	}
}

func (a GrantPurchaseArgs) purchase() *models.Purchase {
	return &models.Purchase{
		EventID:   a.EventID,
		UserID:    a.UserID,
		AgentID:   a.AgentID,
		ListingID: a.ListingID,
		Amount:    decimal.New(a.AmountCents, -2),
		Currency:  a.Currency,
	}
}

// Ledger is the contract the grant worker needs.
type Ledger interface {
	RecordPurchase(ctx context.Context, p *models.Purchase) (bool, error)
}

type GrantPurchaseWorker struct {
	river.WorkerDefaults[GrantPurchaseArgs]
	ledger Ledger
}

func NewGrantPurchaseWorker(l Ledger) *GrantPurchaseWorker {
	return &GrantPurchaseWorker{ledger: l}
}

func (w *GrantPurchaseWorker) Work(ctx context.Context, job *river.Job[GrantPurchaseArgs]) error {
	if _, err := w.ledger.RecordPurchase(ctx, job.Args.purchase()); err != nil {
		return fmt.Errorf("record purchase %s: %w", job.Args.EventID, err)
	}
	return nil
}

// Enqueuer hands a grant off for processing.
type Enqueuer interface {
	EnqueueGrant(ctx context.Context, args GrantPurchaseArgs) error
}

// RiverEnqueuer inserts grant jobs into River.
type RiverEnqueuer struct {
	client *river.Client[pgx.Tx]
}

func NewRiverEnqueuer(client *river.Client[pgx.Tx]) *RiverEnqueuer {
	return &RiverEnqueuer{client: client}
}

func (e *RiverEnqueuer) EnqueueGrant(ctx context.Context, args GrantPurchaseArgs) error {
	_, err := e.client.Insert(ctx, args, nil)
	return err
}

// InlineEnqueuer records grants synchronously. Used without a job queue (memory store).
type InlineEnqueuer struct {
	ledger Ledger
}

func NewInlineEnqueuer(l Ledger) *InlineEnqueuer {
	return &InlineEnqueuer{ledger: l}
}

func (e *InlineEnqueuer) EnqueueGrant(ctx context.Context, args GrantPurchaseArgs) error {
	_, err := e.ledger.RecordPurchase(ctx, args.purchase())
	return err
}
