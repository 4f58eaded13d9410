package llm

import (
	"fmt"

	"github.com/richinex/stitch/config"
)

// NewProvider creates the provider named in the settings. The API key is
// looked up from the environment via config.APIKeyFor.
func NewProvider(settings config.Settings) (Provider, error) {
	apiKey, err := config.APIKeyFor(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	cfg := settings.LLM
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(apiKey, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	case "anthropic":
		return NewAnthropicProvider(apiKey, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	case "gemini":
		return NewGeminiProvider(apiKey, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown provider: %q (supported: %v)", cfg.Provider, config.SupportedProviders())
	}
}
