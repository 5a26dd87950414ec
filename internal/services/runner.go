package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/agents"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/llm"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
)

// PurchaseChecker reports whether a user holds an access grant for a paid agent.
type PurchaseChecker interface {
	HasPurchased(ctx context.Context, userID, agentID uuid.UUID) (bool, error)
}

type RunRequest struct {
	AgentID uuid.UUID
	Caller  uuid.UUID // uuid.Nil for anonymous callers
	APIKey  string
	Query   string
}

type RunResult struct {
	AgentID        uuid.UUID `json:"agent_id"`
	Response       string    `json:"response"`
	TokenUsage     llm.Usage `json:"token_usage"`
	ResponseTimeMs float64   `json:"response_time_ms"`
}

// Runner invokes an agent through the LLM provider and records its run stats.
type Runner struct {
	agents    agents.Service
	provider  llm.Provider
	purchases PurchaseChecker
	log       *slog.Logger
	now       func() time.Time
}

func NewRunner(agentSvc agents.Service, provider llm.Provider, purchases PurchaseChecker, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{agents: agentSvc, provider: provider, purchases: purchases, log: log, now: time.Now}
}

func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	ag, err := r.agents.Get(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}
	if err := r.authorize(ctx, ag, req); err != nil {
		return nil, err
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query", models.ErrMissingRequiredField)
	}

	start := r.now()
	out, err := r.provider.RunCompletion(ctx, llm.Request{
		ModelID:      ag.ModelID,
		SystemPrompt: ag.Instructions,
		UserQuery:    query,
		Temperature:  ag.Temperature,
		MaxTokens:    ag.MaxTokens,
	})
	if err != nil {
		r.log.Warn("agent run failed", "agent_id", ag.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", models.ErrProvider, err)
	}
	elapsed := float64(r.now().Sub(start)) / float64(time.Millisecond)

	if _, err := r.agents.RecordRun(ctx, ag.ID, elapsed); err != nil {
		r.log.Error("record run stats", "agent_id", ag.ID, "error", err)
	}
	return &RunResult{
		AgentID:        ag.ID,
		Response:       out.Text,
		TokenUsage:     out.Usage,
		ResponseTimeMs: elapsed,
	}, nil
}

// authorize applies the visibility rules. The owner may always run the agent and a
// matching API key works at every visibility.
func (r *Runner) authorize(ctx context.Context, ag *models.Agent, req RunRequest) error {
	if req.Caller != uuid.Nil && req.Caller == ag.OwnerID {
		return nil
	}
	if keyMatches(ag, req.APIKey) {
		return nil
	}
	switch ag.Visibility {
	case models.VisibilityPublic:
		return nil
	case models.VisibilityMarketplace:
		if ag.Pricing.IsFree() {
			return nil
		}
		if req.Caller == uuid.Nil {
			return fmt.Errorf("%w: sign in to run a paid agent", models.ErrUnauthorized)
		}
		if r.purchases == nil {
			return models.ErrForbidden
		}
		ok, err := r.purchases.HasPurchased(ctx, req.Caller, ag.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: purchase required", models.ErrForbidden)
		}
		return nil
	}
	if req.Caller == uuid.Nil && req.APIKey == "" {
		return models.ErrUnauthorized
	}
	return models.ErrForbidden
}

func keyMatches(ag *models.Agent, key string) bool {
	if !ag.HasAPIKey() || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(ag.APIKey), []byte(key)) == 1
}
