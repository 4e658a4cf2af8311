package provider

import "fmt"

// PerplexityModels are the Sonar models offered by the Perplexity API, which
// has no model listing endpoint.
var PerplexityModels = []string{
	"sonar",
	"sonar-pro",
	"sonar-reasoning",
	"sonar-reasoning-pro",
	"sonar-deep-research",
}

// NewPerplexityProvider creates a provider for the Perplexity chat
// completions API (OpenAI-compatible).
//
// Parameters:
//   - baseURL: API base URL (default: "https://api.perplexity.ai")
//   - apiKey: Perplexity API key (required)
//   - model: Default model (default: "sonar")
func NewPerplexityProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = PerplexityBaseURL
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Perplexity API key is required")
	}
	if model == "" {
		model = "sonar"
	}

	p := newOpenAICompatible("perplexity", "Perplexity", baseURL, apiKey, model)
	p.curated = PerplexityModels
	return p, nil
}
