package llm

import "fmt"

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// DefaultMaxTokens caps replies; patients get one or two short sentences.
const DefaultMaxTokens = 500

type ProviderConfig struct {
	Provider  string
	APIKey    string
	AuthToken string // OAuth token (Bearer auth)
	Model     string
	BaseURL   string
	MaxTokens int
}

func NewClient(cfg ProviderConfig) (Client, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	switch cfg.Provider {
	case "anthropic":
		c := NewAnthropicClient(cfg.APIKey, cfg.AuthToken, cfg.Model)
		c.maxTokens = cfg.MaxTokens
		if cfg.BaseURL != "" {
			c.endpoint = cfg.BaseURL
		}
		return c, nil
	case "openai":
		return NewOpenAIClient("openai", cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil
	case "ollama":
		if cfg.Model == "" {
			cfg.Model = "llama3.1"
		}
		return NewOpenAIClient("ollama", "ollama", cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil
	case "gemini":
		if cfg.Model == "" {
			cfg.Model = "gemini-1.5-pro"
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = geminiBaseURL
		}
		return NewOpenAIClient("gemini", cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil
	case "rules":
		return NewRulesClient(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
