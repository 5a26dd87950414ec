package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrNotConfigured is returned by Disabled.
var ErrNotConfigured = errors.New("llm provider not configured")

type Request struct {
	ModelID      string
	SystemPrompt string
	UserQuery    string
	Temperature  float64
	MaxTokens    int
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Completion struct {
	Text  string `json:"text"`
	Usage Usage  `json:"token_usage"`
}

// Provider runs a single chat completion.
type Provider interface {
	RunCompletion(ctx context.Context, req Request) (*Completion, error)
}

// EinoProvider adapts an eino chat model.
type EinoProvider struct {
	cm           model.BaseChatModel
	defaultModel string
}

func NewEinoProvider(cm model.BaseChatModel, defaultModel string) *EinoProvider {
	return &EinoProvider{cm: cm, defaultModel: defaultModel}
}

type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
}

// NewOpenAI builds a provider backed by an OpenAI-compatible chat completions endpoint.
func NewOpenAI(ctx context.Context, cfg OpenAIConfig) (*EinoProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	cm, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.DefaultModel,
		BaseURL: cfg.BaseURL,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat model: %w", err)
	}
	return NewEinoProvider(cm, cfg.DefaultModel), nil
}

func (p *EinoProvider) RunCompletion(ctx context.Context, req Request) (*Completion, error) {
	msgs := make([]*schema.Message, 0, 2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		msgs = append(msgs, schema.SystemMessage(req.SystemPrompt))
	}
	msgs = append(msgs, schema.UserMessage(req.UserQuery))

	modelID := req.ModelID
	if modelID == "" {
		modelID = p.defaultModel
	}
	opts := []model.Option{
		model.WithModel(modelID),
		model.WithTemperature(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}

	resp, err := p.cm.Generate(ctx, msgs, opts...)
	if err != nil {
		return nil, err
	}
	out := &Completion{Text: resp.Content}
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		u := resp.ResponseMeta.Usage
		out.Usage = Usage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return out, nil
}

// Disabled is used when no API key is configured; every call fails.
type Disabled struct{}

func (Disabled) RunCompletion(context.Context, Request) (*Completion, error) {
	return nil, ErrNotConfigured
}
