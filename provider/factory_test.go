package provider

import (
	"testing"

	"mdpilot/model"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		expectName  string
	}{
		{
			name:       "perplexity provider",
			config:     Config{Type: ProviderTypePerplexity, APIKey: "pplx-test"},
			expectName: "perplexity",
		},
		{
			name:        "perplexity without key",
			config:      Config{Type: ProviderTypePerplexity},
			expectError: true,
		},
		{
			name:       "openai provider",
			config:     Config{Type: ProviderTypeOpenAI, BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini", APIKey: "test-key"},
			expectName: "openai",
		},
		{
			name:       "openrouter provider",
			config:     Config{Type: ProviderTypeOpenRouter, APIKey: "test-key"},
			expectName: "openrouter",
		},
		{
			name:       "anthropic provider",
			config:     Config{Type: ProviderTypeAnthropic, Model: "claude-sonnet-4-5-20250929", APIKey: "test-key"},
			expectName: "anthropic",
		},
		{
			name:        "anthropic without key",
			config:      Config{Type: ProviderTypeAnthropic},
			expectError: true,
		},
		{
			name:       "ollama provider with defaults",
			config:     Config{Type: ProviderTypeOllama},
			expectName: "ollama",
		},
		{
			name:        "unknown provider type",
			config:      Config{Type: ProviderType("unknown"), BaseURL: "http://localhost", Model: "test"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.config)

			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				if provider != nil {
					t.Error("expected nil provider, got non-nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if provider.Name() != tt.expectName {
				t.Errorf("Name() = %q, want %q", provider.Name(), tt.expectName)
			}
		})
	}
}

func TestMapProviderIDToType(t *testing.T) {
	tests := map[string]ProviderType{
		"":           ProviderTypePerplexity,
		"perplexity": ProviderTypePerplexity,
		"openai":     ProviderTypeOpenAI,
		"openrouter": ProviderTypeOpenRouter,
		"anthropic":  ProviderTypeAnthropic,
		"ollama":     ProviderTypeOllama,
		"other":      ProviderType("other"),
	}
	for id, want := range tests {
		if got := MapProviderIDToType(id); got != want {
			t.Errorf("MapProviderIDToType(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestRequiresAPIKey(t *testing.T) {
	for _, id := range IDs() {
		want := id != "ollama"
		if got := RequiresAPIKey(id); got != want {
			t.Errorf("RequiresAPIKey(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestForSettings(t *testing.T) {
	factory := ForSettings(map[string]string{"ollama": "http://gpu-box:11434"})

	s := model.DefaultSettings()
	s.Provider = "ollama"
	s.Model = "qwen2.5"

	p, err := factory(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	op, ok := p.(*OllamaProvider)
	if !ok {
		t.Fatalf("expected *OllamaProvider, got %T", p)
	}
	if op.Model() != "qwen2.5" {
		t.Errorf("Model() = %q, want qwen2.5", op.Model())
	}

	s.Provider = "perplexity"
	s.APIKey = ""
	if _, err := factory(s); err == nil {
		t.Error("expected error for perplexity without key")
	}
}

func TestPerplexityModelsAreCurated(t *testing.T) {
	p, err := NewPerplexityProvider("", "pplx-test", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Model() != "sonar" {
		t.Errorf("default model = %q, want sonar", p.Model())
	}

	models, err := p.ListModels(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != len(PerplexityModels) {
		t.Fatalf("got %d models, want %d", len(models), len(PerplexityModels))
	}
	for _, m := range models {
		if m.Provider != "perplexity" {
			t.Errorf("model %s provider = %q", m.Name, m.Provider)
		}
	}
}

func TestStripProviderPrefix(t *testing.T) {
	if got := stripProviderPrefix("meta-llama/llama-3.2-90b-instruct"); got != "llama-3.2-90b-instruct" {
		t.Errorf("got %q", got)
	}
	if got := stripProviderPrefix("sonar"); got != "sonar" {
		t.Errorf("got %q", got)
	}
}
