package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
)

// Store is implemented by Repository and by the in-memory store.
type Store interface {
	RecordPurchase(ctx context.Context, p *models.Purchase) (bool, error)
	HasPurchased(ctx context.Context, userID, agentID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Purchase, error)
}

type Service interface {
	// RecordPurchase grants access once per event id. recorded is false for a replayed event.
	RecordPurchase(ctx context.Context, p *models.Purchase) (recorded bool, err error)
	HasPurchased(ctx context.Context, userID, agentID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Purchase, error)
}

type service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) Service {
	return &service{store: store, now: time.Now}
}

var _ Service = (*service)(nil)

// ErrInvalidPurchase is returned for purchases missing an event id or a party.
var ErrInvalidPurchase = errors.New("invalid purchase")

func (s *service) RecordPurchase(ctx context.Context, p *models.Purchase) (bool, error) {
	if strings.TrimSpace(p.EventID) == "" {
		return false, fmt.Errorf("%w: event id required", ErrInvalidPurchase)
	}
	if p.UserID == uuid.Nil || p.AgentID == uuid.Nil || p.ListingID == uuid.Nil {
		return false, fmt.Errorf("%w: user, agent and listing required", ErrInvalidPurchase)
	}
	if p.Amount.IsNegative() {
		return false, fmt.Errorf("%w: negative amount", ErrInvalidPurchase)
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	return s.store.RecordPurchase(ctx, p)
}

func (s *service) HasPurchased(ctx context.Context, userID, agentID uuid.UUID) (bool, error) {
	return s.store.HasPurchased(ctx, userID, agentID)
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Purchase, error) {
	return s.store.ListByUser(ctx, userID)
}
