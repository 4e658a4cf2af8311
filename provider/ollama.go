package provider

import (
	"context"
	"fmt"
	"strings"

	"mdpilot/model"
	"mdpilot/ollama"
)

// OllamaProvider wraps ollama.Client to implement model.Provider.
type OllamaProvider struct {
	client *ollama.Client
}

// NewOllamaProvider creates a new Ollama provider instance.
//
// Parameters:
//   - baseURL: The Ollama server URL. If empty, defaults to "http://localhost:11434".
//   - model: The model name to use. If empty, defaults to "llama3.1:latest".
//
// Returns an error if the baseURL is invalid.
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	client, err := ollama.NewClient(baseURL, model)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaProvider{
		client: client,
	}, nil
}

// Name implements model.Provider.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Model returns the default model.
func (p *OllamaProvider) Model() string {
	return p.client.GetModel()
}

// Stream implements model.Provider by converting messages and wrapping the
// chunk callback into stream events.
func (p *OllamaProvider) Stream(ctx context.Context, req model.ChatRequest, callback model.StreamCallback) error {
	if callback == nil {
		callback = func(model.StreamEvent) error { return nil }
	}

	var full strings.Builder
	err := p.client.Chat(ctx, ConvertToOllamaMessages(req.Messages), ollama.ChatOptions{
		Model:       req.Model,
		Temperature: req.Temperature,
	}, func(chunk string, _ bool) error {
		if chunk == "" {
			return nil
		}
		full.WriteString(chunk)
		return callback(model.Token(chunk))
	})

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_ = callback(model.Error(fmt.Sprintf("Ollama: %v", err)))
		return fmt.Errorf("Ollama chat error: %w", err)
	}
	return callback(model.Done(full.String()))
}

// ListModels implements model.Provider.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return p.client.ListModels(ctx)
}
