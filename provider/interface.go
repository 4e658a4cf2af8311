// Package provider implements the streaming chat-completion transports.
//
// mdpilot talks to several APIs (Perplexity, OpenAI, OpenRouter, Anthropic,
// Ollama) through the model.Provider contract, so the engine and UI stay
// provider-agnostic.
//
// # Stream contract
//
// Stream emits a Token event for every content delta and finishes with
// exactly one terminal event: Done carrying the complete response, or Error
// carrying a message. A failed request also returns a non-nil error. SDK
// clients are built with retries disabled; a failed call is never repeated.
//
// # Architecture
//
//   - model.Provider defines the contract (interface)
//   - OpenAIProvider serves every OpenAI-compatible API (Perplexity, OpenAI, OpenRouter)
//   - AnthropicProvider uses the Anthropic SDK
//   - OllamaProvider wraps ollama.Client
//   - NewProvider and ForSettings build providers from configuration
//
// # Usage
//
//	p, err := provider.NewProvider(provider.Config{
//	    Type:   provider.ProviderTypePerplexity,
//	    APIKey: "pplx-...",
//	})
//	if err != nil {
//	    // handle error
//	}
//	err = p.Stream(ctx, req, callback)
package provider

// Note: The Provider interface and StreamEvent are defined in the model package
// (model/provider.go) to avoid import cycles. This package implements model.Provider.

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypePerplexity ProviderType = "perplexity"
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeOpenRouter ProviderType = "openrouter"
	ProviderTypeAnthropic  ProviderType = "anthropic"
	ProviderTypeOllama     ProviderType = "ollama"
)

// Default base URLs.
const (
	PerplexityBaseURL = "https://api.perplexity.ai"
	OpenAIBaseURL     = "https://api.openai.com/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	AnthropicBaseURL  = "https://api.anthropic.com"
	OllamaBaseURL     = "http://localhost:11434"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // Unused for Ollama
}
