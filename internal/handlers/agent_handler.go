package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/agents"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/middleware"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/pricing"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/services"
)

// AgentHandler serves /api/v1/agents endpoints.
type AgentHandler struct {
	Agents      agents.Service
	Consistency *services.Consistency
	Runner      *services.Runner
	Logger      *slog.Logger
}

// --- POST /api/v1/agents ---

type createAgentRequest struct {
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	ModelID              string          `json:"model_id"`
	Instructions         string          `json:"instructions"`
	Temperature          *float64        `json:"temperature"`
	MaxTokens            *int            `json:"max_tokens"`
	EnableWebSearch      bool            `json:"enable_web_search"`
	EnableKnowledgeBase  bool            `json:"enable_knowledge_base"`
	EnableMemory         bool            `json:"enable_memory"`
	Visibility           string          `json:"visibility"`
	CustomizationOptions json.RawMessage `json:"customization_options"`
	pricing.Envelope
}

func (h *AgentHandler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := agents.CreateInput{
		Name:                 req.Name,
		Description:          req.Description,
		ModelID:              req.ModelID,
		Instructions:         req.Instructions,
		Temperature:          req.Temperature,
		MaxTokens:            req.MaxTokens,
		EnableWebSearch:      req.EnableWebSearch,
		EnableKnowledgeBase:  req.EnableKnowledgeBase,
		EnableMemory:         req.EnableMemory,
		Visibility:           req.Visibility,
		CustomizationOptions: req.CustomizationOptions,
	}
	if p, ok := req.Envelope.Resolve(); ok {
		in.Pricing = &p
	}
	ag, err := h.Agents.Create(r.Context(), middleware.UserIDFromCtx(r.Context()), in)
	if err != nil {
		writeError(w, h.Logger, "create agent", err)
		return
	}
	writeJSON(w, http.StatusCreated, ag)
}

// --- GET /api/v1/agents ---

func (h *AgentHandler) ListMyAgents(w http.ResponseWriter, r *http.Request) {
	list, err := h.Agents.ListByOwner(r.Context(), middleware.UserIDFromCtx(r.Context()))
	if err != nil {
		writeError(w, h.Logger, "list agents", err)
		return
	}
	if list == nil {
		list = []*models.Agent{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"agents": list})
}

// --- GET /api/v1/agents/{id} ---

// GetAgent returns the agent. Private agents are reported missing to everyone but the owner.
func (h *AgentHandler) GetAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	ag, err := h.Agents.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, "get agent", err)
		return
	}
	if ag.Visibility == models.VisibilityPrivate && ag.OwnerID != middleware.UserIDFromCtx(r.Context()) {
		writeError(w, h.Logger, "get agent", models.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ag)
}

// --- PATCH /api/v1/agents/{id} ---

type updateAgentRequest struct {
	agents.Patch
	pricing.Envelope
}

func (h *AgentHandler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req updateAgentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patch := req.Patch
	if p, ok := req.Envelope.Resolve(); ok {
		patch.Pricing = &p
	}
	ag, err := h.Consistency.UpdateAgent(r.Context(), id, middleware.UserIDFromCtx(r.Context()), patch)
	if err != nil {
		writeError(w, h.Logger, "update agent", err)
		return
	}
	writeJSON(w, http.StatusOK, ag)
}

// --- PUT /api/v1/agents/{id}/pricing ---

func (h *AgentHandler) UpdatePricing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var env pricing.Envelope
	if !decodeJSON(w, r, &env) {
		return
	}
	in, ok := env.Resolve()
	if !ok {
		writeError(w, h.Logger, "update pricing", fmt.Errorf("%w: pricing", models.ErrMissingRequiredField))
		return
	}
	ag, err := h.Consistency.UpdatePricing(r.Context(), id, middleware.UserIDFromCtx(r.Context()), in)
	if err != nil {
		writeError(w, h.Logger, "update pricing", err)
		return
	}
	writeJSON(w, http.StatusOK, ag)
}

// --- DELETE /api/v1/agents/{id} ---

func (h *AgentHandler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Consistency.DeleteAgent(r.Context(), id, middleware.UserIDFromCtx(r.Context())); err != nil {
		writeError(w, h.Logger, "delete agent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- POST /api/v1/agents/{id}/api-key ---

func (h *AgentHandler) GenerateAPIKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	key, err := h.Agents.EnsureAPIKey(r.Context(), id, middleware.UserIDFromCtx(r.Context()))
	if err != nil {
		writeError(w, h.Logger, "generate api key", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"agent_id": id.String(), "api_key": key})
}

// --- POST /api/v1/agents/{id}/run ---

type runAgentRequest struct {
	Query string `json:"query"`
}

// RunAgent is reachable anonymously; access is decided by the runner from the
// caller identity and X-API-Key.
func (h *AgentHandler) RunAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req runAgentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.Runner.Run(r.Context(), services.RunRequest{
		AgentID: id,
		Caller:  middleware.UserIDFromCtx(r.Context()),
		APIKey:  middleware.APIKeyFromRequest(r),
		Query:   req.Query,
	})
	if err != nil {
		writeError(w, h.Logger, "run agent", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
