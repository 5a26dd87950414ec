package services

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/agents"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/marketplace"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/pricing"
)

// Consistency keeps an agent and its marketplace listing loosely in sync.
//
// Every operation is a two-step sequence: the primary write's error is returned to
// the caller, the secondary write on the other entity is best-effort. A failed
// secondary write is logged and counted, never returned and never compensated.
type Consistency struct {
	agents   agents.Service
	listings marketplace.Service
	log      *slog.Logger

	syncFailures atomic.Int64
}

func NewConsistency(agentSvc agents.Service, listingSvc marketplace.Service, log *slog.Logger) *Consistency {
	if log == nil {
		log = slog.Default()
	}
	return &Consistency{agents: agentSvc, listings: listingSvc, log: log}
}

// SyncFailures is the number of secondary writes that failed since startup.
func (c *Consistency) SyncFailures() int64 { return c.syncFailures.Load() }

// UpdateAgent applies patch and mirrors name, description and pricing onto the listing
// when the agent is on the marketplace.
func (c *Consistency) UpdateAgent(ctx context.Context, agentID, requesterID uuid.UUID, patch agents.Patch) (*models.Agent, error) {
	ag, changes, err := c.agents.UpdateFields(ctx, agentID, requesterID, patch)
	if err != nil {
		return nil, err
	}
	c.propagate(ctx, ag, changes)
	return ag, nil
}

// UpdatePricing validates in once and then follows the UpdateAgent path.
func (c *Consistency) UpdatePricing(ctx context.Context, agentID, requesterID uuid.UUID, in pricing.Input) (*models.Agent, error) {
	p, err := pricing.Normalize(in, pricing.Strict)
	if err != nil {
		return nil, err
	}
	normalized := p.Input()
	return c.UpdateAgent(ctx, agentID, requesterID, agents.Patch{Pricing: &normalized})
}

// PublishAgent creates the listing, then marks the agent published on the marketplace.
func (c *Consistency) PublishAgent(ctx context.Context, ownerID, agentID uuid.UUID, in marketplace.CreateInput) (*models.Listing, error) {
	ag, err := c.agents.Get(ctx, agentID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	l, err := c.listings.Create(ctx, ownerID, ag, in)
	if err != nil {
		return nil, err
	}
	if _, err := c.agents.SetPublication(ctx, agentID, true, models.VisibilityMarketplace); err != nil {
		c.secondaryFailed("publication flip failed", err, agentID, l.ID)
	}
	return l, nil
}

// UpdateListing is a direct seller edit; nothing flows back to the agent.
func (c *Consistency) UpdateListing(ctx context.Context, listingID, requesterID uuid.UUID, patch marketplace.Patch) (*models.Listing, error) {
	return c.listings.Update(ctx, listingID, requesterID, patch)
}

// UnlistListing deletes the listing, then marks the agent unpublished and private.
func (c *Consistency) UnlistListing(ctx context.Context, listingID, requesterID uuid.UUID) error {
	l, err := c.listings.Delete(ctx, listingID, requesterID)
	if err != nil {
		return err
	}
	if _, err := c.agents.SetPublication(ctx, l.AgentID, false, models.VisibilityPrivate); err != nil {
		c.secondaryFailed("publication flip failed", err, l.AgentID, l.ID)
	}
	return nil
}

// DeleteAgent removes the agent's listing first and then the agent. If unlisting fails
// the agent is kept, so no listing is left pointing at a missing agent.
func (c *Consistency) DeleteAgent(ctx context.Context, agentID, requesterID uuid.UUID) error {
	ag, err := c.agents.Get(ctx, agentID)
	if err != nil {
		return err
	}
	if ag.OwnerID != requesterID {
		return models.ErrForbidden
	}
	l, err := c.listings.FindByAgentID(ctx, agentID)
	switch {
	case err == nil:
		if _, err := c.listings.Delete(ctx, l.ID, l.SellerID); err != nil {
			return err
		}
	case !errors.Is(err, models.ErrNotFound):
		return err
	}
	return c.agents.Delete(ctx, agentID, requesterID)
}

func (c *Consistency) propagate(ctx context.Context, ag *models.Agent, changes agents.Changes) {
	if !changes.Projected() || ag.Visibility != models.VisibilityMarketplace {
		return
	}
	l, err := c.listings.FindByAgentID(ctx, ag.ID)
	if errors.Is(err, models.ErrNotFound) {
		c.log.Debug("marketplace agent has no listing", "agent_id", ag.ID)
		return
	}
	if err != nil {
		c.secondaryFailed("listing sync failed", err, ag.ID, uuid.Nil)
		return
	}
	_, err = c.listings.ApplyProjection(ctx, l.ID, marketplace.Projection{
		Title:       ag.Name,
		Description: ag.Description,
		Pricing:     ag.Pricing,
	})
	if err != nil {
		c.secondaryFailed("listing sync failed", err, ag.ID, l.ID)
	}
}

func (c *Consistency) secondaryFailed(msg string, err error, agentID, listingID uuid.UUID) {
	c.syncFailures.Add(1)
	attrs := []any{"agent_id", agentID, "error", err}
	if listingID != uuid.Nil {
		attrs = append(attrs, "listing_id", listingID)
	}
	c.log.Warn(msg, attrs...)
}
