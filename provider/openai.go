package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"mdpilot/config"
	"mdpilot/model"
)

// OpenAIProvider implements model.Provider for every OpenAI-compatible chat
// completions API using the official OpenAI Go SDK.
type OpenAIProvider struct {
	client  openai.Client
	name    string
	label   string
	model   string
	baseURL string

	// curated replaces the /models endpoint for APIs that do not offer one.
	curated []string
	// listName maps an API model id to the name shown in lists.
	listName func(id string) string
}

func newOpenAICompatible(name, label, baseURL, apiKey, model string, opts ...option.RequestOption) *OpenAIProvider {
	opts = append([]option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &OpenAIProvider{
		client:  openai.NewClient(opts...),
		name:    name,
		label:   label,
		model:   model,
		baseURL: baseURL,
	}
}

// NewOpenAIProvider creates a new OpenAI provider instance.
//
// Parameters:
//   - baseURL: OpenAI API base URL (default: "https://api.openai.com/v1")
//   - apiKey: OpenAI API key (required)
//   - model: Default model (default: "gpt-4o-mini")
//
// Returns an error if the API key is missing.
func NewOpenAIProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return newOpenAICompatible("openai", "OpenAI", baseURL, apiKey, model), nil
}

// Name implements model.Provider.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Model returns the default model.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// BaseURL returns the API base URL.
func (p *OpenAIProvider) BaseURL() string {
	return p.baseURL
}

// Stream implements model.Provider with streaming chat completions.
func (p *OpenAIProvider) Stream(ctx context.Context, req model.ChatRequest, callback model.StreamCallback) error {
	if callback == nil {
		callback = func(model.StreamEvent) error { return nil }
	}

	modelName := req.Model
	if modelName == "" {
		modelName = p.model
	}

	params := openai.ChatCompletionNewParams{
		Messages: ConvertToOpenAIMessages(req.Messages),
		Model:    openai.ChatModel(modelName),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if err := callback(model.Token(delta)); err != nil {
			return err
		}
	}

	if err := stream.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if config.DebugLog != nil {
			config.DebugLog.Debugf("[%s] streaming error: %v", p.name, err)
		}
		_ = callback(model.Error(fmt.Sprintf("%s: %v", p.label, err)))
		return fmt.Errorf("%s streaming error: %w", p.label, err)
	}

	return callback(model.Done(full.String()))
}

// ListModels implements model.Provider.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	if p.curated != nil {
		result := make([]model.ModelInfo, 0, len(p.curated))
		for _, m := range p.curated {
			result = append(result, model.ModelInfo{Name: m, Provider: p.name})
		}
		return result, nil
	}

	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s models: %w", p.label, err)
	}

	result := make([]model.ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		info := model.ModelInfo{Name: m.ID, Provider: p.name}
		if p.listName != nil {
			info.DisplayName = p.listName(m.ID)
		}
		result = append(result, info)
	}
	return result, nil
}
