package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"mdpilot/config"
	"mdpilot/model"
)

// anthropicMaxTokens is required by the Messages API. Whole documents come
// back in a single answer, so it is generous.
const anthropicMaxTokens = 8192

// AnthropicProvider implements model.Provider using Anthropic's official Go SDK.
type AnthropicProvider struct {
	client  *anthropic.Client
	model   anthropic.Model
	baseURL string
}

// NewAnthropicProvider creates a new Anthropic provider instance.
//
// Parameters:
//   - baseURL: Anthropic API base URL (default: "https://api.anthropic.com")
//   - apiKey: Anthropic API key (required)
//   - model: Default model (default: "claude-sonnet-4-5-20250929")
//
// Returns an error if the API key is missing.
func NewAnthropicProvider(baseURL, apiKey, model string) (*AnthropicProvider, error) {
	if baseURL == "" {
		baseURL = AnthropicBaseURL
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	anthropicModel := anthropic.ModelClaudeSonnet4_5_20250929
	if model != "" {
		anthropicModel = anthropic.Model(model)
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	return &AnthropicProvider{
		client:  &client,
		model:   anthropicModel,
		baseURL: baseURL,
	}, nil
}

// Name implements model.Provider.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model returns the default model.
func (p *AnthropicProvider) Model() string {
	return string(p.model)
}

// Stream implements model.Provider with streaming messages.
func (p *AnthropicProvider) Stream(ctx context.Context, req model.ChatRequest, callback model.StreamCallback) error {
	if callback == nil {
		callback = func(model.StreamEvent) error { return nil }
	}

	anthropicModel := p.model
	if req.Model != "" {
		anthropicModel = anthropic.Model(req.Model)
	}

	messages, system := ConvertToAnthropicMessages(req.Messages)
	params := anthropic.MessageNewParams{
		Model:     anthropicModel,
		Messages:  messages,
		MaxTokens: anthropicMaxTokens,
	}
	if len(system) > 0 {
		params.System = system
	}
	if req.Temperature != nil {
		// Anthropic accepts 0..1; the UI allows up to 2.
		params.Temperature = anthropic.Float(min(*req.Temperature, 1))
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		event := stream.Current()

		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if deltaVariant.Text == "" {
					continue
				}
				full.WriteString(deltaVariant.Text)
				if err := callback(model.Token(deltaVariant.Text)); err != nil {
					return err
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if config.DebugLog != nil {
			config.DebugLog.Debugf("[anthropic] streaming error: %v", err)
		}
		_ = callback(model.Error(fmt.Sprintf("Anthropic: %v", err)))
		return fmt.Errorf("Anthropic streaming error: %w", err)
	}

	return callback(model.Done(full.String()))
}

// ListModels implements model.Provider.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	// Anthropic's model listing needs extra permissions on some keys, so a
	// curated list of current models is returned.
	models := []anthropic.Model{
		anthropic.ModelClaudeSonnet4_5_20250929,
		anthropic.ModelClaude3_5Haiku20241022,
		anthropic.ModelClaude_3_Opus_20240229,
		anthropic.ModelClaude_3_Haiku_20240307,
	}

	result := make([]model.ModelInfo, 0, len(models))
	for _, m := range models {
		result = append(result, model.ModelInfo{
			Name:     string(m),
			Provider: "anthropic",
		})
	}
	return result, nil
}
