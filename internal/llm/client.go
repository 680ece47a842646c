package llm

import "fmt"

// Provider selects which vendor backend New constructs.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Config holds the credentials and defaults needed to construct a client,
// sourced from the environment per the transport's external interface
// contract (API_KEY, BASE_URL, MODEL_NAME).
type Config struct {
	Provider  Provider
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// New constructs the LLMClient for cfg.Provider. Unknown providers are a
// configuration error surfaced at startup, not a runtime fallback.
func New(cfg Config) (LLMClient, error) {
	switch cfg.Provider {
	case ProviderAnthropic:
		return NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
