package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/pricing"
)

// Repository persists listings. Create returns models.ErrAlreadyListed when the agent
// already has a listing; lookups return models.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, l *models.Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindByAgentID(ctx context.Context, agentID uuid.UUID) (*models.Listing, error)
	List(ctx context.Context, f models.ListingFilter) ([]*models.Listing, error)
	// Update writes the seller-editable fields only.
	Update(ctx context.Context, l *models.Listing) error
	ApplyProjection(ctx context.Context, id uuid.UUID, title, description string, p pricing.Pricing) (*models.Listing, error)
	SetRating(ctx context.Context, id uuid.UUID, r models.Rating) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, agent *models.Agent, in CreateInput) (*models.Listing, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindByAgentID(ctx context.Context, agentID uuid.UUID) (*models.Listing, error)
	List(ctx context.Context, f models.ListingFilter) ([]*models.Listing, error)
	Update(ctx context.Context, id, requesterID uuid.UUID, patch Patch) (*models.Listing, error)
	ApplyProjection(ctx context.Context, id uuid.UUID, p Projection) (*models.Listing, error)
	SetRating(ctx context.Context, id uuid.UUID, r models.Rating) error
	Delete(ctx context.Context, id, requesterID uuid.UUID) (*models.Listing, error)
}

type CreateInput struct {
	Title       string
	Description string
	Category    string
	Tags        []string
	Pricing     *pricing.Input
}

// Patch is the seller-editable allow-list. Rating, purchase stats, agent and seller are not patchable.
type Patch struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Category    *string        `json:"category"`
	Tags        []string       `json:"tags"`
	IsActive    *bool          `json:"is_active"`
	Pricing     *pricing.Input `json:"-"`
}

// Projection carries the agent fields mirrored onto its listing.
type Projection struct {
	Title       string
	Description string
	Pricing     pricing.Pricing
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxTags         = 10
)

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

var _ Service = (*service)(nil)

// Create lists agent on behalf of ownerID. Checks run in order: agent exists, ownership,
// no existing listing, required fields, then value validation.
func (s *service) Create(ctx context.Context, ownerID uuid.UUID, agent *models.Agent, in CreateInput) (*models.Listing, error) {
	if agent == nil {
		return nil, fmt.Errorf("agent: %w", models.ErrNotFound)
	}
	if agent.OwnerID != ownerID {
		return nil, models.ErrForbidden
	}
	if _, err := s.repo.FindByAgentID(ctx, agent.ID); err == nil {
		return nil, models.ErrAlreadyListed
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	switch {
	case strings.TrimSpace(in.Description) == "":
		return nil, fmt.Errorf("%w: description", models.ErrMissingRequiredField)
	case in.Pricing == nil || strings.TrimSpace(in.Pricing.Type) == "":
		return nil, fmt.Errorf("%w: pricing.type", models.ErrMissingRequiredField)
	case strings.TrimSpace(in.Category) == "":
		return nil, fmt.Errorf("%w: category", models.ErrMissingRequiredField)
	}
	cat, ok := models.ParseCategory(in.Category)
	if !ok {
		return nil, fmt.Errorf("%w: category %q", models.ErrInvalidField, in.Category)
	}
	p, err := pricing.Normalize(*in.Pricing, pricing.Strict)
	if err != nil {
		return nil, err
	}
	tags, err := cleanTags(in.Tags)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = agent.Name
	}
	now := s.now().UTC()
	l := &models.Listing{
		ID:          uuid.New(),
		AgentID:     agent.ID,
		SellerID:    ownerID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Category:    cat,
		Tags:        tags,
		Pricing:     p,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) FindByAgentID(ctx context.Context, agentID uuid.UUID) (*models.Listing, error) {
	return s.repo.FindByAgentID(ctx, agentID)
}

func (s *service) List(ctx context.Context, f models.ListingFilter) ([]*models.Listing, error) {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Sort != models.SortRating {
		f.Sort = models.SortNewest
	}
	return s.repo.List(ctx, f)
}

func (s *service) Update(ctx context.Context, id, requesterID uuid.UUID, patch Patch) (*models.Listing, error) {
	l, err := s.owned(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title", models.ErrMissingRequiredField)
		}
		l.Title = title
	}
	if patch.Description != nil {
		desc := strings.TrimSpace(*patch.Description)
		if desc == "" {
			return nil, fmt.Errorf("%w: description", models.ErrMissingRequiredField)
		}
		l.Description = desc
	}
	if patch.Category != nil {
		cat, ok := models.ParseCategory(*patch.Category)
		if !ok {
			return nil, fmt.Errorf("%w: category %q", models.ErrInvalidField, *patch.Category)
		}
		l.Category = cat
	}
	if patch.Tags != nil {
		if l.Tags, err = cleanTags(patch.Tags); err != nil {
			return nil, err
		}
	}
	if patch.IsActive != nil {
		l.IsActive = *patch.IsActive
	}
	if patch.Pricing != nil {
		if l.Pricing, err = pricing.Normalize(*patch.Pricing, pricing.Strict); err != nil {
			return nil, err
		}
	}
	l.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *service) ApplyProjection(ctx context.Context, id uuid.UUID, p Projection) (*models.Listing, error) {
	return s.repo.ApplyProjection(ctx, id, p.Title, p.Description, p.Pricing)
}

func (s *service) SetRating(ctx context.Context, id uuid.UUID, r models.Rating) error {
	return s.repo.SetRating(ctx, id, r)
}

// Delete removes the listing and returns it so callers can update the source agent.
func (s *service) Delete(ctx context.Context, id, requesterID uuid.UUID) (*models.Listing, error) {
	l, err := s.owned(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *service) owned(ctx context.Context, id, requesterID uuid.UUID) (*models.Listing, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.SellerID != requesterID {
		return nil, models.ErrForbidden
	}
	return l, nil
}

// cleanTags trims, drops empties and de-duplicates case-insensitively, keeping first spelling.
func cleanTags(in []string) ([]string, error) {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	if len(out) > maxTags {
		return nil, fmt.Errorf("%w: at most %d tags", models.ErrInvalidField, maxTags)
	}
	return out, nil
}
