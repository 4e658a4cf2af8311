package provider

import (
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3/option"
)

// NewOpenRouterProvider creates a provider for OpenRouter, which is fully
// OpenAI-compatible.
//
// Parameters:
//   - baseURL: OpenRouter API base URL (default: "https://openrouter.ai/api/v1")
//   - apiKey: OpenRouter API key (required)
//   - model: Default model, with vendor prefix
func NewOpenRouterProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = OpenRouterBaseURL
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required")
	}
	if model == "" {
		model = "perplexity/sonar"
	}

	p := newOpenAICompatible("openrouter", "OpenRouter", baseURL, apiKey, model,
		option.WithHeader("HTTP-Referer", "https://github.com/mdpilot/mdpilot"),
		option.WithHeader("X-Title", "mdpilot"),
	)
	p.listName = stripProviderPrefix
	return p, nil
}

// stripProviderPrefix removes vendor prefixes from OpenRouter model names.
// "meta-llama/llama-3.2-90b-instruct" → "llama-3.2-90b-instruct"
func stripProviderPrefix(modelName string) string {
	if idx := strings.Index(modelName, "/"); idx != -1 {
		return modelName[idx+1:]
	}
	return modelName
}
