package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/pricing"
)

// ErrCheckoutDisabled is returned when no checkout provider is configured.
var ErrCheckoutDisabled = errors.New("checkout not configured")

type CheckoutResult struct {
	Granted   bool   `json:"granted"`
	SessionID string `json:"session_id,omitempty"`
	URL       string `json:"url,omitempty"`
}

type Service struct {
	checkout Checkout
	enqueue  Enqueuer
	log      *slog.Logger
}

// NewService wires payments. checkout may be nil, in which case only free listings can be acquired.
func NewService(checkout Checkout, enqueue Enqueuer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{checkout: checkout, enqueue: enqueue, log: log}
}

// StartCheckout begins acquiring l for userID. Free listings are granted immediately.
func (s *Service) StartCheckout(ctx context.Context, userID uuid.UUID, l *models.Listing) (*CheckoutResult, error) {
	if !l.IsActive {
		return nil, fmt.Errorf("listing: %w", models.ErrNotFound)
	}
	if l.Pricing.IsFree() {
		err := s.enqueue.EnqueueGrant(ctx, GrantPurchaseArgs{
			EventID:   "free:" + l.ID.String() + ":" + userID.String(),
			UserID:    userID,
			AgentID:   l.AgentID,
			ListingID: l.ID,
			Currency:  l.Pricing.Currency,
		})
		if err != nil {
			return nil, err
		}
		return &CheckoutResult{Granted: true}, nil
	}
	if s.checkout == nil {
		return nil, ErrCheckoutDisabled
	}

	mode := ModePayment
	if l.Pricing.Type == pricing.Subscription {
		mode = ModeSubscription
	}
	sess, err := s.checkout.CreateCheckout(ctx,
		LineItem{Name: l.Title, Amount: l.Pricing.Amount, Currency: l.Pricing.Currency},
		mode,
		Metadata{AgentID: l.AgentID, UserID: userID, ListingID: l.ID},
	)
	if err != nil {
		return nil, fmt.Errorf("create checkout: %w", err)
	}
	return &CheckoutResult{SessionID: sess.ID, URL: sess.URL}, nil
}

// HandleEvent consumes a verified webhook event. Events that do not grant access are ignored.
func (s *Service) HandleEvent(ctx context.Context, ev *Event) error {
	if !ev.Grants() {
		s.log.Debug("ignoring payment event", "event_id", ev.ID, "type", ev.Type)
		return nil
	}
	agentID, userID, listingID, err := ev.IDs()
	if err != nil {
		return err
	}
	currency := strings.ToUpper(ev.Currency)
	if currency == "" {
		currency = pricing.DefaultCurrency
	}
	args := GrantPurchaseArgs{
		EventID:     ev.ID,
		UserID:      userID,
		AgentID:     agentID,
		ListingID:   listingID,
		AmountCents: ev.AmountTotal,
		Currency:    currency,
	}
	if err := s.enqueue.EnqueueGrant(ctx, args); err != nil {
		return fmt.Errorf("enqueue grant: %w", err)
	}
	s.log.Info("purchase grant queued", "event_id", ev.ID, "listing_id", listingID, "user_id", userID)
	return nil
}
