package marketplace

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/pricing"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/store"
)

func testAgent(owner uuid.UUID) *models.Agent {
	return &models.Agent{ID: uuid.New(), OwnerID: owner, Name: "Code Buddy", Description: "Reviews code"}
}

func validInput() CreateInput {
	return CreateInput{
		Description: "Reviews your pull requests",
		Category:    "coding",
		Tags:        []string{"go", " Go ", "", "review"},
		Pricing:     &pricing.Input{Type: "Subscription", Amount: "9.999", Currency: "usd"},
	}
}

func TestCreate_NormalizesInput(t *testing.T) {
	svc := NewService(store.NewMemory().Listings())
	owner := uuid.New()
	ag := testAgent(owner)

	l, err := svc.Create(context.Background(), owner, ag, validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if l.Title != ag.Name {
		t.Errorf("expected title to default to agent name, got %q", l.Title)
	}
	if l.Category != "Coding" {
		t.Errorf("expected canonical category, got %q", l.Category)
	}
	if len(l.Tags) != 2 || l.Tags[0] != "go" || l.Tags[1] != "review" {
		t.Errorf("unexpected tags %v", l.Tags)
	}
	if l.Pricing.String() != "subscription 10.00 USD" {
		t.Errorf("got pricing %s", l.Pricing)
	}
	if !l.IsActive || l.SellerID != owner || l.Rating.Count != 0 {
		t.Errorf("unexpected listing state %+v", l)
	}
}

func TestCreate_CheckOrder(t *testing.T) {
	owner := uuid.New()
	tests := []struct {
		name  string
		agent func() *models.Agent
		req   uuid.UUID
		mod   func(*CreateInput)
		want  error
	}{
		{"missing agent", func() *models.Agent { return nil }, owner, nil, models.ErrNotFound},
		{"not owner", func() *models.Agent { return testAgent(owner) }, uuid.New(), func(in *CreateInput) { in.Description = "" }, models.ErrForbidden},
		{"missing description", func() *models.Agent { return testAgent(owner) }, owner, func(in *CreateInput) { in.Description = " " }, models.ErrMissingRequiredField},
		{"missing pricing", func() *models.Agent { return testAgent(owner) }, owner, func(in *CreateInput) { in.Pricing = nil }, models.ErrMissingRequiredField},
		{"missing category", func() *models.Agent { return testAgent(owner) }, owner, func(in *CreateInput) { in.Category = "" }, models.ErrMissingRequiredField},
		{"unknown category", func() *models.Agent { return testAgent(owner) }, owner, func(in *CreateInput) { in.Category = "Gardening" }, models.ErrInvalidField},
		{"zero paid amount", func() *models.Agent { return testAgent(owner) }, owner, func(in *CreateInput) { in.Pricing.Amount = "0" }, pricing.ErrInvalidPricingAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(store.NewMemory().Listings())
			in := validInput()
			if tt.mod != nil {
				tt.mod(&in)
			}
			if _, err := svc.Create(context.Background(), tt.req, tt.agent(), in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCreate_AlreadyListed(t *testing.T) {
	svc := NewService(store.NewMemory().Listings())
	owner := uuid.New()
	ag := testAgent(owner)
	if _, err := svc.Create(context.Background(), owner, ag, validInput()); err != nil {
		t.Fatal(err)
	}
	// already-listed wins over missing fields
	_, err := svc.Create(context.Background(), owner, ag, CreateInput{})
	if !errors.Is(err, models.ErrAlreadyListed) {
		t.Errorf("expected already listed, got %v", err)
	}
}

func TestUpdate_AllowList(t *testing.T) {
	svc := NewService(store.NewMemory().Listings())
	owner := uuid.New()
	l, _ := svc.Create(context.Background(), owner, testAgent(owner), validInput())

	title := "New title"
	inactive := false
	got, err := svc.Update(context.Background(), l.ID, owner, Patch{Title: &title, IsActive: &inactive})
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != title || got.IsActive {
		t.Errorf("patch not applied: %+v", got)
	}
	if got.AgentID != l.AgentID || got.SellerID != owner {
		t.Errorf("identity fields changed")
	}

	if _, err := svc.Update(context.Background(), l.ID, uuid.New(), Patch{Title: &title}); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestList_FiltersAndClamps(t *testing.T) {
	mem := store.NewMemory()
	svc := NewService(mem.Listings())
	owner := uuid.New()
	for i := 0; i < 3; i++ {
		in := validInput()
		if i == 2 {
			in.Category = "Writing"
		}
		if _, err := svc.Create(context.Background(), owner, testAgent(owner), in); err != nil {
			t.Fatal(err)
		}
	}

	list, err := svc.List(context.Background(), models.ListingFilter{Category: "Coding", Limit: 1000})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 coding listings, got %d", len(list))
	}

	list, _ = svc.List(context.Background(), models.ListingFilter{Query: "REVIEW"})
	if len(list) != 3 {
		t.Errorf("expected tag match on all listings, got %d", len(list))
	}
}

func TestApplyProjection(t *testing.T) {
	svc := NewService(store.NewMemory().Listings())
	owner := uuid.New()
	l, _ := svc.Create(context.Background(), owner, testAgent(owner), validInput())

	p, _ := pricing.Normalize(pricing.Input{Type: "free"}, pricing.Strict)
	got, err := svc.ApplyProjection(context.Background(), l.ID, Projection{Title: "T", Description: "D", Pricing: p})
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "T" || got.Description != "D" || !got.Pricing.IsFree() {
		t.Errorf("projection not applied: %+v", got)
	}
	if got.Category != l.Category || len(got.Tags) != len(l.Tags) {
		t.Errorf("projection touched listing-only fields")
	}
}
