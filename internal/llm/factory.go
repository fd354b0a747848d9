package llm

import (
	"context"
	"fmt"
)

// Supported providers.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// ModelConfig selects and configures a provider.
type ModelConfig struct {
	Provider string
	Name     string
	APIKey   string
	BaseURL  string
}

// NewModel creates the Model for cfg.Provider.
func NewModel(ctx context.Context, cfg ModelConfig) (Model, error) {
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGeminiModel(ctx, cfg.APIKey, cfg.Name)
	case ProviderOllama:
		return NewOllamaModel(cfg.BaseURL, cfg.APIKey, cfg.Name)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
