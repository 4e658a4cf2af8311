package provider

import (
	"fmt"

	"mdpilot/model"
)

// NewProvider creates a provider based on configuration.
//
// It dispatches on Config.Type. Perplexity, OpenAI and OpenRouter share the
// OpenAI-compatible transport with different base URLs.
//
// Returns an error if the provider type is unknown or the provider-specific
// constructor fails (e.g. a missing API key).
func NewProvider(cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypePerplexity:
		return NewPerplexityProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeOpenRouter:
		return NewOpenRouterProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapProviderIDToType converts a config provider ID to a ProviderType.
// An empty ID means Perplexity. Unknown IDs are passed through and rejected
// by NewProvider.
func MapProviderIDToType(id string) ProviderType {
	switch id {
	case "", "perplexity":
		return ProviderTypePerplexity
	case "openai":
		return ProviderTypeOpenAI
	case "openrouter":
		return ProviderTypeOpenRouter
	case "anthropic":
		return ProviderTypeAnthropic
	case "ollama":
		return ProviderTypeOllama
	default:
		return ProviderType(id)
	}
}

// RequiresAPIKey reports whether the provider with id needs an API key.
func RequiresAPIKey(id string) bool {
	return MapProviderIDToType(id) != ProviderTypeOllama
}

// IDs lists the supported provider IDs.
func IDs() []string {
	return []string{"perplexity", "openai", "openrouter", "anthropic", "ollama"}
}

// ForSettings returns a factory building the provider selected by the
// settings. baseURLs optionally overrides the base URL per provider ID.
func ForSettings(baseURLs map[string]string) func(model.Settings) (model.Provider, error) {
	return func(s model.Settings) (model.Provider, error) {
		return NewProvider(Config{
			Type:    MapProviderIDToType(s.Provider),
			BaseURL: baseURLs[s.Provider],
			Model:   s.Model,
			APIKey:  s.APIKey,
		})
	}
}
