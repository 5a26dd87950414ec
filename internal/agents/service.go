package agents

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/pricing"
)

// Repository persists agents. Implementations return models.ErrNotFound for unknown ids.
type Repository interface {
	Create(ctx context.Context, ag *models.Agent) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Agent, error)
	// Update writes the owner-editable fields only. Stats, visibility, publication state
	// and the API key have their own writes so concurrent runs and publishes are never
	// overwritten.
	Update(ctx context.Context, ag *models.Agent) error
	// SetVisibility changes visibility in one guarded write: marketplace only while the
	// agent is published, and a published agent stays marketplace. A failed guard
	// returns models.ErrInvalidField.
	SetVisibility(ctx context.Context, id uuid.UUID, visibility models.Visibility) (*models.Agent, error)
	SetPublication(ctx context.Context, id uuid.UUID, published bool, visibility models.Visibility) (*models.Agent, error)
	// RecordRun must increment usage and fold responseTimeMs into the running average
	// as one atomic store command.
	RecordRun(ctx context.Context, id uuid.UUID, responseTimeMs float64) (*models.Agent, error)
	// SetAPIKeyIfAbsent stores key unless the agent already has one, and returns the stored key.
	SetAPIKeyIfAbsent(ctx context.Context, id uuid.UUID, key string) (string, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*models.Agent, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Agent, error)
	UpdateFields(ctx context.Context, id, requesterID uuid.UUID, patch Patch) (*models.Agent, Changes, error)
	RecordRun(ctx context.Context, id uuid.UUID, responseTimeMs float64) (*models.Agent, error)
	EnsureAPIKey(ctx context.Context, id, requesterID uuid.UUID) (string, error)
	SetPublication(ctx context.Context, id uuid.UUID, published bool, visibility models.Visibility) (*models.Agent, error)
	Delete(ctx context.Context, id, requesterID uuid.UUID) error
}

type CreateInput struct {
	Name                 string
	Description          string
	ModelID              string
	Instructions         string
	Temperature          *float64
	MaxTokens            *int
	EnableWebSearch      bool
	EnableKnowledgeBase  bool
	EnableMemory         bool
	Visibility           string
	Pricing              *pricing.Input
	CustomizationOptions json.RawMessage
}

// Patch lists every field an owner may change. Fields absent from it (owner, model,
// stats, publication state, API key) cannot be patched; callers decoding JSON into
// a Patch drop them silently. Pricing is not decoded here because it arrives in
// either of the pricing.Envelope shapes.
type Patch struct {
	Name                 *string         `json:"name"`
	Description          *string         `json:"description"`
	Instructions         *string         `json:"instructions"`
	Temperature          *float64        `json:"temperature"`
	MaxTokens            *int            `json:"max_tokens"`
	EnableWebSearch      *bool           `json:"enable_web_search"`
	EnableKnowledgeBase  *bool           `json:"enable_knowledge_base"`
	EnableMemory         *bool           `json:"enable_memory"`
	Visibility           *string         `json:"visibility"`
	CustomizationOptions json.RawMessage `json:"customization_options"`
	Pricing              *pricing.Input  `json:"-"`
}

// Changes reports which listing-projected fields an update modified.
type Changes struct {
	Name        bool
	Description bool
	Pricing     bool
}

// Projected reports whether any field copied onto a marketplace listing changed.
func (c Changes) Projected() bool { return c.Name || c.Description || c.Pricing }

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

var _ Service = (*service)(nil)

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*models.Agent, error) {
	required := []struct{ name, value string }{
		{"name", in.Name},
		{"description", in.Description},
		{"model_id", in.ModelID},
		{"instructions", in.Instructions},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return nil, fmt.Errorf("%w: %s", models.ErrMissingRequiredField, f.name)
		}
	}

	p := pricing.Default()
	if in.Pricing != nil {
		var err error
		if p, err = pricing.Normalize(*in.Pricing, pricing.Strict); err != nil {
			return nil, err
		}
	}

	vis := models.Visibility(strings.ToLower(strings.TrimSpace(in.Visibility)))
	if vis != models.VisibilityPublic {
		// marketplace is only reached by publishing a listing
		vis = models.VisibilityPrivate
	}

	temp := models.DefaultTemperature
	if in.Temperature != nil {
		temp = *in.Temperature
	}
	maxTokens := models.DefaultMaxTokens
	if in.MaxTokens != nil {
		maxTokens = *in.MaxTokens
	}
	if err := validateTuning(temp, maxTokens); err != nil {
		return nil, err
	}
	if err := validateOptions(in.CustomizationOptions); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ag := &models.Agent{
		ID:                   uuid.New(),
		OwnerID:              ownerID,
		Name:                 strings.TrimSpace(in.Name),
		Description:          strings.TrimSpace(in.Description),
		ModelID:              strings.TrimSpace(in.ModelID),
		Instructions:         in.Instructions,
		Temperature:          temp,
		MaxTokens:            maxTokens,
		EnableWebSearch:      in.EnableWebSearch,
		EnableKnowledgeBase:  in.EnableKnowledgeBase,
		EnableMemory:         in.EnableMemory,
		Visibility:           vis,
		Pricing:              p,
		CustomizationOptions: in.CustomizationOptions,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.repo.Create(ctx, ag); err != nil {
		return nil, err
	}
	return ag, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Agent, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *service) UpdateFields(ctx context.Context, id, requesterID uuid.UUID, patch Patch) (*models.Agent, Changes, error) {
	ag, err := s.owned(ctx, id, requesterID)
	if err != nil {
		return nil, Changes{}, err
	}

	var ch Changes
	var setVis models.Visibility
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, Changes{}, fmt.Errorf("%w: name", models.ErrMissingRequiredField)
		}
		ch.Name = name != ag.Name
		ag.Name = name
	}
	if patch.Description != nil {
		desc := strings.TrimSpace(*patch.Description)
		if desc == "" {
			return nil, Changes{}, fmt.Errorf("%w: description", models.ErrMissingRequiredField)
		}
		ch.Description = desc != ag.Description
		ag.Description = desc
	}
	if patch.Instructions != nil {
		if strings.TrimSpace(*patch.Instructions) == "" {
			return nil, Changes{}, fmt.Errorf("%w: instructions", models.ErrMissingRequiredField)
		}
		ag.Instructions = *patch.Instructions
	}
	if patch.Temperature != nil {
		ag.Temperature = *patch.Temperature
	}
	if patch.MaxTokens != nil {
		ag.MaxTokens = *patch.MaxTokens
	}
	if err := validateTuning(ag.Temperature, ag.MaxTokens); err != nil {
		return nil, Changes{}, err
	}
	if patch.EnableWebSearch != nil {
		ag.EnableWebSearch = *patch.EnableWebSearch
	}
	if patch.EnableKnowledgeBase != nil {
		ag.EnableKnowledgeBase = *patch.EnableKnowledgeBase
	}
	if patch.EnableMemory != nil {
		ag.EnableMemory = *patch.EnableMemory
	}
	if patch.Visibility != nil {
		vis := models.Visibility(strings.ToLower(strings.TrimSpace(*patch.Visibility)))
		if !vis.Valid() {
			return nil, Changes{}, fmt.Errorf("%w: visibility %q", models.ErrInvalidField, *patch.Visibility)
		}
		if err := checkVisibility(vis, ag.IsPublished); err != nil {
			return nil, Changes{}, err
		}
		if vis != ag.Visibility {
			setVis = vis
		}
	}
	if patch.Pricing != nil {
		p, err := pricing.Normalize(*patch.Pricing, pricing.Strict)
		if err != nil {
			return nil, Changes{}, err
		}
		ch.Pricing = !p.Equal(ag.Pricing)
		ag.Pricing = p
	}
	if patch.CustomizationOptions != nil {
		if err := validateOptions(patch.CustomizationOptions); err != nil {
			return nil, Changes{}, err
		}
		ag.CustomizationOptions = patch.CustomizationOptions
	}

	if setVis != "" {
		cur, err := s.repo.SetVisibility(ctx, id, setVis)
		if err != nil {
			return nil, Changes{}, err
		}
		ag.Visibility, ag.IsPublished = cur.Visibility, cur.IsPublished
	}
	ag.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, ag); err != nil {
		return nil, Changes{}, err
	}
	return ag, ch, nil
}

// checkVisibility keeps visibility marketplace exactly while a listing exists.
func checkVisibility(vis models.Visibility, published bool) error {
	if vis == models.VisibilityMarketplace && !published {
		return fmt.Errorf("%w: visibility marketplace requires a listing", models.ErrInvalidField)
	}
	if vis != models.VisibilityMarketplace && published {
		return fmt.Errorf("%w: unlist the agent before changing visibility", models.ErrInvalidField)
	}
	return nil
}

func (s *service) RecordRun(ctx context.Context, id uuid.UUID, responseTimeMs float64) (*models.Agent, error) {
	if responseTimeMs < 0 {
		responseTimeMs = 0
	}
	return s.repo.RecordRun(ctx, id, responseTimeMs)
}

// EnsureAPIKey returns the agent's API key, generating one on first call.
func (s *service) EnsureAPIKey(ctx context.Context, id, requesterID uuid.UUID) (string, error) {
	ag, err := s.owned(ctx, id, requesterID)
	if err != nil {
		return "", err
	}
	if ag.HasAPIKey() {
		return ag.APIKey, nil
	}
	key, err := generateAPIKey()
	if err != nil {
		return "", err
	}
	return s.repo.SetAPIKeyIfAbsent(ctx, id, key)
}

func (s *service) SetPublication(ctx context.Context, id uuid.UUID, published bool, visibility models.Visibility) (*models.Agent, error) {
	if !visibility.Valid() {
		return nil, fmt.Errorf("%w: visibility %q", models.ErrInvalidField, visibility)
	}
	return s.repo.SetPublication(ctx, id, published, visibility)
}

func (s *service) Delete(ctx context.Context, id, requesterID uuid.UUID) error {
	if _, err := s.owned(ctx, id, requesterID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) owned(ctx context.Context, id, requesterID uuid.UUID) (*models.Agent, error) {
	ag, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ag.OwnerID != requesterID {
		return nil, models.ErrForbidden
	}
	return ag, nil
}

func validateTuning(temperature float64, maxTokens int) error {
	if temperature < 0 || temperature > models.MaxTemperature {
		return fmt.Errorf("%w: temperature must be between 0 and %.1f", models.ErrInvalidField, models.MaxTemperature)
	}
	if maxTokens <= 0 {
		return fmt.Errorf("%w: max_tokens must be positive", models.ErrInvalidField)
	}
	return nil
}

func validateOptions(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("%w: customization_options must be a JSON object", models.ErrInvalidField)
	}
	return nil
}

func generateAPIKey() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
