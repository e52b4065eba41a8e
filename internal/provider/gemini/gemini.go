// Package gemini implements the model provider over the Gemini API.
package gemini

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/aide-agent/aide/internal/chat"
	"github.com/aide-agent/aide/internal/tool"
)

// Provider generates model turns with Gemini.
type Provider struct {
	client Client
	model  string
	log    *zap.Logger
}

// New creates a provider for the given model name.
func New(client Client, model string, log *zap.Logger) *Provider {
	return &Provider{client: client, model: model, log: log}
}

// NewFromAPIKey builds a provider backed by the real SDK.
func NewFromAPIKey(ctx context.Context, apiKey, model string, log *zap.Logger) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return New(NewSDKClient(client), model, log), nil
}

// Generate sends the conversation and returns the model's next turn.
func (p *Provider) Generate(ctx context.Context, messages []chat.Message, tools []tool.Declaration) (*chat.ModelResponse, error) {
	contents := toContents(messages)
	config := &genai.GenerateContentConfig{}
	if len(tools) > 0 {
		config.Tools = toTools(tools)
	}

	resp, err := p.client.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini generate: no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("gemini generate: content blocked by safety filters")
	}

	blocks := fromCandidate(candidate)
	reason := stopReason(candidate, blocks)
	p.log.Debug("model turn generated",
		zap.String("model", p.model),
		zap.String("stop_reason", reason),
		zap.Int("blocks", len(blocks)),
	)

	return &chat.ModelResponse{Content: blocks, StopReason: reason}, nil
}
