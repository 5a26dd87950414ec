package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/agents"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/marketplace"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/pricing"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/store"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

type fixture struct {
	agents   agents.Service
	listings marketplace.Service
	c        *Consistency
	logs     *bytes.Buffer
}

func newFixture(t *testing.T, wrap func(marketplace.Service) marketplace.Service) *fixture {
	t.Helper()
	mem := store.NewMemory()
	agentSvc := agents.NewService(mem.Agents())
	var listingSvc marketplace.Service = marketplace.NewService(mem.Listings())
	if wrap != nil {
		listingSvc = wrap(listingSvc)
	}
	buf := &bytes.Buffer{}
	log := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &fixture{
		agents:   agentSvc,
		listings: listingSvc,
		c:        NewConsistency(agentSvc, listingSvc, log),
		logs:     buf,
	}
}

func (f *fixture) createAgent(t *testing.T, owner uuid.UUID) *models.Agent {
	t.Helper()
	ag, err := f.agents.Create(context.Background(), owner, agents.CreateInput{
		Name:         "Essay Helper",
		Description:  "Helps with essays",
		ModelID:      "gpt-4o-mini",
		Instructions: "Help the user write.",
	})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	return ag
}

func listingInput() marketplace.CreateInput {
	return marketplace.CreateInput{
		Description: "Listing copy",
		Category:    "Writing",
		Pricing:     &pricing.Input{Type: "one-time", Amount: "5"},
	}
}

func strPtr(s string) *string { return &s }

// failingProjection fails every listing sync write.
type failingProjection struct {
	marketplace.Service
}

func (failingProjection) ApplyProjection(context.Context, uuid.UUID, marketplace.Projection) (*models.Listing, error) {
	return nil, errors.New("listing store unavailable")
}

// ---------------------------------------------------------------------------
// Publish -> edit agent -> listing mirrors it
// ---------------------------------------------------------------------------

func TestPublishThenUpdate_PropagatesToListing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := uuid.New()
	ag := f.createAgent(t, owner)

	l, err := f.c.PublishAgent(ctx, owner, ag.ID, listingInput())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if l.Title != "Essay Helper" {
		t.Errorf("expected title from agent name, got %q", l.Title)
	}
	published, _ := f.agents.Get(ctx, ag.ID)
	if !published.IsPublished || published.Visibility != models.VisibilityMarketplace {
		t.Fatalf("agent not flipped to marketplace: published=%v vis=%s", published.IsPublished, published.Visibility)
	}

	if _, err := f.c.UpdateAgent(ctx, ag.ID, owner, agents.Patch{
		Name:        strPtr("Essay Coach"),
		Description: strPtr("Coaches essays"),
	}); err != nil {
		t.Fatalf("update agent: %v", err)
	}
	if _, err := f.c.UpdatePricing(ctx, ag.ID, owner, pricing.Input{Type: "Subscription", Amount: "12.345", Currency: "eur"}); err != nil {
		t.Fatalf("update pricing: %v", err)
	}

	got, _ := f.listings.Get(ctx, l.ID)
	if got.Title != "Essay Coach" || got.Description != "Coaches essays" {
		t.Errorf("listing not synced: title=%q description=%q", got.Title, got.Description)
	}
	if got.Pricing.String() != "subscription 12.35 EUR" {
		t.Errorf("listing pricing not synced: %s", got.Pricing)
	}
	if got.Category != "Writing" {
		t.Errorf("category should be untouched, got %q", got.Category)
	}
	if f.c.SyncFailures() != 0 {
		t.Errorf("unexpected sync failures: %d", f.c.SyncFailures())
	}
}

func TestFreeAgentRepricedListedThenRenamed(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := uuid.New()

	ag, err := f.agents.Create(ctx, owner, agents.CreateInput{
		Name:         "Inbox Zero",
		Description:  "Triages email",
		ModelID:      "gpt-4o-mini",
		Instructions: "Sort the inbox.",
		Pricing:      &pricing.Input{Type: "free"},
	})
	if err != nil {
		t.Fatal(err)
	}
	repriced, err := f.c.UpdatePricing(ctx, ag.ID, owner, pricing.Input{Type: "subscription", Amount: "9.99"})
	if err != nil {
		t.Fatalf("update pricing: %v", err)
	}

	in := repriced.Pricing.Input()
	l, err := f.c.PublishAgent(ctx, owner, ag.ID, marketplace.CreateInput{
		Description: "Triages email",
		Category:    "Productivity",
		Pricing:     &in,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := f.c.UpdateAgent(ctx, ag.ID, owner, agents.Patch{Name: strPtr("Inbox Hero")}); err != nil {
		t.Fatalf("rename: %v", err)
	}

	got, err := f.listings.Get(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Inbox Hero" {
		t.Errorf("expected title Inbox Hero, got %q", got.Title)
	}
	if got.Pricing.Type != pricing.Subscription || !got.Pricing.Amount.Equal(decimal.RequireFromString("9.99")) || got.Pricing.Currency != "USD" {
		t.Errorf("expected {subscription, 9.99, USD}, got %s", got.Pricing)
	}
	if got.Category != "Productivity" {
		t.Errorf("expected Productivity, got %q", got.Category)
	}
}

func TestUpdateAgent_NotOnMarketplaceSkipsSync(t *testing.T) {
	f := newFixture(t, failingProjection{}.wrap)
	owner := uuid.New()
	ag := f.createAgent(t, owner)

	if _, err := f.c.UpdateAgent(context.Background(), ag.ID, owner, agents.Patch{Name: strPtr("Renamed")}); err != nil {
		t.Fatal(err)
	}
	if f.c.SyncFailures() != 0 {
		t.Errorf("private agent should not touch listings")
	}
}

// ---------------------------------------------------------------------------
// Unlist -> agent private again
// ---------------------------------------------------------------------------

func TestUnlist_RevertsAgent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := uuid.New()
	ag := f.createAgent(t, owner)
	l, err := f.c.PublishAgent(ctx, owner, ag.ID, listingInput())
	if err != nil {
		t.Fatal(err)
	}

	if err := f.c.UnlistListing(ctx, l.ID, uuid.New()); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected forbidden for non-seller, got %v", err)
	}
	if err := f.c.UnlistListing(ctx, l.ID, owner); err != nil {
		t.Fatalf("unlist: %v", err)
	}

	got, _ := f.agents.Get(ctx, ag.ID)
	if got.IsPublished || got.Visibility != models.VisibilityPrivate {
		t.Errorf("agent not reverted: published=%v vis=%s", got.IsPublished, got.Visibility)
	}
	if _, err := f.listings.Get(ctx, l.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("listing still present: %v", err)
	}

	// can be listed again once unlisted
	if _, err := f.c.PublishAgent(ctx, owner, ag.ID, listingInput()); err != nil {
		t.Errorf("republish: %v", err)
	}
}

func TestPublish_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := uuid.New()
	ag := f.createAgent(t, owner)

	if _, err := f.c.PublishAgent(ctx, owner, uuid.New(), listingInput()); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected not found for unknown agent, got %v", err)
	}
	if _, err := f.c.PublishAgent(ctx, uuid.New(), ag.ID, listingInput()); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("expected forbidden for non-owner, got %v", err)
	}
	if _, err := f.c.PublishAgent(ctx, owner, ag.ID, listingInput()); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.PublishAgent(ctx, owner, ag.ID, listingInput()); !errors.Is(err, models.ErrAlreadyListed) {
		t.Errorf("expected already listed, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Secondary failures are logged and counted, not returned
// ---------------------------------------------------------------------------

func (failingProjection) wrap(s marketplace.Service) marketplace.Service {
	return failingProjection{Service: s}
}

func TestUpdateAgent_SyncFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, failingProjection{}.wrap)
	ctx := context.Background()
	owner := uuid.New()
	ag := f.createAgent(t, owner)
	l, err := f.c.PublishAgent(ctx, owner, ag.ID, listingInput())
	if err != nil {
		t.Fatal(err)
	}

	updated, err := f.c.UpdateAgent(ctx, ag.ID, owner, agents.Patch{Name: strPtr("New Name")})
	if err != nil {
		t.Fatalf("primary write should succeed, got %v", err)
	}
	if updated.Name != "New Name" {
		t.Errorf("agent not updated")
	}
	if f.c.SyncFailures() != 1 {
		t.Errorf("expected 1 sync failure, got %d", f.c.SyncFailures())
	}
	logs := f.logs.String()
	if !strings.Contains(logs, `"level":"WARN"`) || !strings.Contains(logs, "listing sync failed") {
		t.Errorf("expected warn log, got %s", logs)
	}
	if !strings.Contains(logs, l.ID.String()) {
		t.Errorf("expected listing id in log, got %s", logs)
	}

	got, _ := f.listings.Get(ctx, l.ID)
	if got.Title != "Essay Helper" {
		t.Errorf("listing should keep stale title, got %q", got.Title)
	}
}

// ---------------------------------------------------------------------------
// DeleteAgent
// ---------------------------------------------------------------------------

func TestDeleteAgent_RemovesListing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := uuid.New()
	ag := f.createAgent(t, owner)
	l, _ := f.c.PublishAgent(ctx, owner, ag.ID, listingInput())

	if err := f.c.DeleteAgent(ctx, ag.ID, uuid.New()); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	if err := f.c.DeleteAgent(ctx, ag.ID, owner); err != nil {
		t.Fatal(err)
	}
	if _, err := f.listings.Get(ctx, l.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("listing should be gone, got %v", err)
	}
	if _, err := f.agents.Get(ctx, ag.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("agent should be gone, got %v", err)
	}
}
