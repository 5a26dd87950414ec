package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/pricing"
)

// Visibility governs who may invoke an agent.
type Visibility string

const (
	VisibilityPrivate     Visibility = "private"
	VisibilityPublic      Visibility = "public"
	VisibilityMarketplace Visibility = "marketplace"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityPublic, VisibilityMarketplace:
		return true
	}
	return false
}

// Agent defaults applied at creation.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
	MaxTemperature     = 2.0
)

type AgentStats struct {
	UsageCount          int64   `json:"usage_count"`
	AverageResponseTime float64 `json:"average_response_time"` // ms
}

type Agent struct {
	ID                   uuid.UUID       `json:"id"`
	OwnerID              uuid.UUID       `json:"owner_id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	ModelID              string          `json:"model_id"`
	Instructions         string          `json:"instructions"`
	Temperature          float64         `json:"temperature"`
	MaxTokens            int             `json:"max_tokens"`
	EnableWebSearch      bool            `json:"enable_web_search"`
	EnableKnowledgeBase  bool            `json:"enable_knowledge_base"`
	EnableMemory         bool            `json:"enable_memory"`
	Visibility           Visibility      `json:"visibility"`
	Pricing              pricing.Pricing `json:"pricing"`
	CustomizationOptions json.RawMessage `json:"customization_options,omitempty"`
	APIKey               string          `json:"-"`
	IsPublished          bool            `json:"is_published"`
	Stats                AgentStats      `json:"stats"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func (a *Agent) HasAPIKey() bool { return a.APIKey != "" }

// Clone returns a deep copy.
func (a *Agent) Clone() *Agent {
	cp := *a
	if a.CustomizationOptions != nil {
		cp.CustomizationOptions = append(json.RawMessage(nil), a.CustomizationOptions...)
	}
	return &cp
}
