package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/pricing"
)

type AgentRepo struct {
	pool *pgxpool.Pool
}

func NewAgentRepo(pool *pgxpool.Pool) *AgentRepo {
	return &AgentRepo{pool: pool}
}

const agentColumns = `id, owner_id, name, description, model_id, instructions, temperature, max_tokens,
	enable_web_search, enable_knowledge_base, enable_memory, visibility,
	pricing_type, pricing_amount, pricing_currency, customization_options, api_key,
	is_published, usage_count, average_response_time, created_at, updated_at`

func scanAgent(row pgx.Row) (*models.Agent, error) {
	var ag models.Agent
	var apiKey *string
	err := row.Scan(&ag.ID, &ag.OwnerID, &ag.Name, &ag.Description, &ag.ModelID, &ag.Instructions, &ag.Temperature, &ag.MaxTokens,
		&ag.EnableWebSearch, &ag.EnableKnowledgeBase, &ag.EnableMemory, &ag.Visibility,
		&ag.Pricing.Type, &ag.Pricing.Amount, &ag.Pricing.Currency, &ag.CustomizationOptions, &apiKey,
		&ag.IsPublished, &ag.Stats.UsageCount, &ag.Stats.AverageResponseTime, &ag.CreatedAt, &ag.UpdatedAt)
	if err != nil {
		return nil, mapErr(err, nil)
	}
	if apiKey != nil {
		ag.APIKey = *apiKey
	}
	ag.Pricing = pricing.FromStored(ag.Pricing)
	return &ag, nil
}

func (r *AgentRepo) Create(ctx context.Context, ag *models.Agent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO agents (id, owner_id, name, description, model_id, instructions, temperature, max_tokens,
			enable_web_search, enable_knowledge_base, enable_memory, visibility,
			pricing_type, pricing_amount, pricing_currency, customization_options, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, ag.ID, ag.OwnerID, ag.Name, ag.Description, ag.ModelID, ag.Instructions, ag.Temperature, ag.MaxTokens,
		ag.EnableWebSearch, ag.EnableKnowledgeBase, ag.EnableMemory, ag.Visibility,
		ag.Pricing.Type, ag.Pricing.Amount, ag.Pricing.Currency, nullJSON(ag.CustomizationOptions), ag.CreatedAt, ag.UpdatedAt)
	return err
}

func (r *AgentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	return scanAgent(r.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id))
}

// ListByOwner returns the owner's agents, newest first.
func (r *AgentRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Agent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+agentColumns+` FROM agents WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Agent
	for rows.Next() {
		ag, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, ag)
	}
	return list, rows.Err()
}

func (r *AgentRepo) Update(ctx context.Context, ag *models.Agent) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE agents SET name = $2, description = $3, instructions = $4, temperature = $5, max_tokens = $6,
			enable_web_search = $7, enable_knowledge_base = $8, enable_memory = $9,
			pricing_type = $10, pricing_amount = $11, pricing_currency = $12, customization_options = $13, updated_at = $14
		WHERE id = $1
	`, ag.ID, ag.Name, ag.Description, ag.Instructions, ag.Temperature, ag.MaxTokens,
		ag.EnableWebSearch, ag.EnableKnowledgeBase, ag.EnableMemory,
		ag.Pricing.Type, ag.Pricing.Amount, ag.Pricing.Currency, nullJSON(ag.CustomizationOptions), ag.UpdatedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetVisibility guards on is_published in the same statement, so a concurrent
// publish or unlist cannot be overwritten.
func (r *AgentRepo) SetVisibility(ctx context.Context, id uuid.UUID, vis models.Visibility) (*models.Agent, error) {
	ag, err := scanAgent(r.pool.QueryRow(ctx, `
		UPDATE agents SET visibility = $2, updated_at = now()
		WHERE id = $1 AND is_published = ($2 = 'marketplace')
		RETURNING `+agentColumns, id, vis))
	if !errors.Is(err, models.ErrNotFound) {
		return ag, err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: visibility %s does not match publication state", models.ErrInvalidField, vis)
}

func (r *AgentRepo) SetPublication(ctx context.Context, id uuid.UUID, published bool, vis models.Visibility) (*models.Agent, error) {
	return scanAgent(r.pool.QueryRow(ctx, `
		UPDATE agents SET is_published = $2, visibility = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+agentColumns, id, published, vis))
}

// RecordRun folds one sample into the running average in a single statement; the row
// lock taken by UPDATE serializes concurrent runs of the same agent.
func (r *AgentRepo) RecordRun(ctx context.Context, id uuid.UUID, responseTimeMs float64) (*models.Agent, error) {
	return scanAgent(r.pool.QueryRow(ctx, `
		UPDATE agents SET
			average_response_time = (average_response_time * usage_count + $2) / (usage_count + 1),
			usage_count = usage_count + 1
		WHERE id = $1
		RETURNING `+agentColumns, id, responseTimeMs))
}

func (r *AgentRepo) SetAPIKeyIfAbsent(ctx context.Context, id uuid.UUID, key string) (string, error) {
	var stored string
	err := r.pool.QueryRow(ctx, `
		UPDATE agents SET api_key = COALESCE(api_key, $2)
		WHERE id = $1
		RETURNING api_key
	`, id, key).Scan(&stored)
	if err != nil {
		return "", mapErr(err, nil)
	}
	return stored, nil
}

func (r *AgentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
