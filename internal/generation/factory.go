package generation

import (
	"fmt"

	"qwencode/internal/config"
)

// NewClientFromConfig builds the LLMClient named by cfg.Engine/Provider.
// CLI engines take precedence over API providers when Engine is set to
// one of them; otherwise Provider selects the API-based client.
func NewClientFromConfig(cfg *config.GenerationConfig, apiKey string) (LLMClient, error) {
	switch cfg.Engine {
	case "claude-cli":
		return NewClaudeCLIClient(cfg.Model, nil), nil
	case "codex-cli":
		return NewCodexCLIClient(cfg.Model, nil), nil
	case "api", "":
		// fall through to provider selection below
	default:
		return nil, fmt.Errorf("unknown generation engine: %s (valid: api, claude-cli, codex-cli)", cfg.Engine)
	}

	switch cfg.Provider {
	case "anthropic":
		c := NewAnthropicClient(apiKey)
		if cfg.Model != "" {
			c.SetModel(cfg.Model)
		}
		return c, nil
	case "openai":
		c := NewOpenAIClient(apiKey)
		if cfg.Model != "" {
			c.SetModel(cfg.Model)
		}
		return c, nil
	case "gemini":
		c := NewGeminiClient(apiKey)
		if cfg.Model != "" {
			c.SetModel(cfg.Model)
		}
		return c, nil
	case "xai":
		c := NewXAIClient(apiKey)
		if cfg.Model != "" {
			c.SetModel(cfg.Model)
		}
		return c, nil
	case "zai":
		c := NewZAIClient(apiKey)
		if cfg.Model != "" {
			c.SetModel(cfg.Model)
		}
		return c, nil
	case "openrouter":
		c := NewOpenRouterClient(apiKey)
		if cfg.Model != "" {
			c.SetModel(cfg.Model)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", cfg.Provider)
	}
}
