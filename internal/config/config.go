// Package config loads and serialises the qwencode agent's configuration:
// a single struct with enumerated fields per concern, populated from a YAML
// file and then overridden by environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RouterConfig tunes the hybrid router's tier escalation.
type RouterConfig struct {
	MinConfidence float64 `yaml:"min_confidence"`
	LLMFallback   bool    `yaml:"llm_fallback"`
}

// AdaptiveConfig tunes AdaptiveStrategy's complexity classification and history.
type AdaptiveConfig struct {
	CriticalShare float64 `yaml:"critical_share"`
	HistoryPath   string  `yaml:"history_path"`
	MaxHistory    int     `yaml:"max_history"`
}

// SelfCorrectionConfig tunes the self-correction loop.
type SelfCorrectionConfig struct {
	MaxIterations         int     `yaml:"max_iterations"`
	MinScoreForCorrection float64 `yaml:"min_score"`
}

// ValidationConfig tunes the validation pipeline.
type ValidationConfig struct {
	Parallel        bool          `yaml:"parallel"`
	PerRuleTimeout  time.Duration `yaml:"per_rule_timeout"`
}

// OutcomesConfig tunes the outcome tracker's storage and retention.
type OutcomesConfig struct {
	DBPath string `yaml:"db_path"`
	TTLDays int   `yaml:"ttl_days"`
}

// DeepModeConfig tunes the deep-mode escalator.
type DeepModeConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	Model               string  `yaml:"model"`
}

// QueryModifierConfig tunes the query-modifier chain.
type QueryModifierConfig struct {
	OutputLanguage string `yaml:"output_language"`
	Enabled        bool   `yaml:"enabled"`
}

// LoggingConfig is the logging section of the YAML config. internal/logging
// does not read this file: the category-based file logger takes the same
// fields from .qwencode/config.json.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

// GenerationConfig selects the generation backend and model.
type GenerationConfig struct {
	Engine    string `yaml:"engine"`    // "api" | "claude-cli" | "codex-cli"
	Provider  string `yaml:"provider"`  // anthropic | openai | gemini | xai | zai | openrouter
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// EmbeddingConfig selects the embedding backend behind NeuralRouter.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // ollama | genai
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIAPIKey    string `yaml:"genai_api_key"`
	GenAIModel     string `yaml:"genai_model"`
}

// Config is the top-level configuration struct.
type Config struct {
	Workspace string `yaml:"-"`

	Router        RouterConfig         `yaml:"router"`
	Adaptive      AdaptiveConfig       `yaml:"adaptive"`
	SelfCorrection SelfCorrectionConfig `yaml:"self_correction"`
	Validation    ValidationConfig     `yaml:"validation"`
	Outcomes      OutcomesConfig       `yaml:"outcomes"`
	DeepMode      DeepModeConfig       `yaml:"deep_mode"`
	QueryModifier QueryModifierConfig  `yaml:"query_modifier"`
	Logging       LoggingConfig        `yaml:"logging"`
	Generation    GenerationConfig     `yaml:"generation"`
	Embedding     EmbeddingConfig      `yaml:"embedding"`

	// EnableOSSContext toggles whether the OSS pattern-store snippet is
	// attached to generation requests.
	EnableOSSContext bool `yaml:"enable_oss_context"`
}

// DefaultConfig returns a configuration with sane, documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Router: RouterConfig{
			MinConfidence: 0.6,
			LLMFallback:   true,
		},
		Adaptive: AdaptiveConfig{
			CriticalShare: 0.2,
			HistoryPath:   ".qwencode/adaptive_history.json",
			MaxHistory:    200,
		},
		SelfCorrection: SelfCorrectionConfig{
			MaxIterations:         3,
			MinScoreForCorrection: 0.10,
		},
		Validation: ValidationConfig{
			Parallel:       true,
			PerRuleTimeout: 10 * time.Second,
		},
		Outcomes: OutcomesConfig{
			DBPath:  ".qwencode/outcomes.sqlite",
			TTLDays: 30,
		},
		DeepMode: DeepModeConfig{
			ConfidenceThreshold: 0.5,
			Model:               "",
		},
		QueryModifier: QueryModifierConfig{
			OutputLanguage: "en",
			Enabled:        true,
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
		Generation: GenerationConfig{
			Engine:    "api",
			MaxTokens: 4096,
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
		},
		EnableOSSContext: true,
	}
}

// Load reads a YAML config file at path. A missing file is not an error:
// defaults are used silently. applyEnvOverrides always runs afterward.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save serialises cfg as YAML to path, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnvOverrides layers recognised environment variables on top of the
// file/default configuration. Env vars always win.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ENABLE_OSS_CONTEXT"); v != "" {
		c.EnableOSSContext = v == "true" || v == "1"
	}
	if v := os.Getenv("ADAPTIVE_HISTORY_PATH"); v != "" {
		c.Adaptive.HistoryPath = v
	}
	if v := os.Getenv("OUTCOMES_DB_PATH"); v != "" {
		c.Outcomes.DBPath = v
	}

	for _, p := range []struct {
		env      string
		provider string
	}{
		{"ANTHROPIC_API_KEY", "anthropic"},
		{"OPENAI_API_KEY", "openai"},
		{"GEMINI_API_KEY", "gemini"},
		{"XAI_API_KEY", "xai"},
		{"ZAI_API_KEY", "zai"},
		{"OPENROUTER_API_KEY", "openrouter"},
	} {
		if key := os.Getenv(p.env); key != "" && c.Generation.Provider == "" {
			c.Generation.Provider = p.provider
		}
	}

	if v := os.Getenv("OLLAMA_ENDPOINT"); v != "" {
		c.Embedding.OllamaEndpoint = v
	}
	if v := os.Getenv("OLLAMA_EMBEDDING_MODEL"); v != "" {
		c.Embedding.OllamaModel = v
	}
	if v := os.Getenv("GENAI_API_KEY"); v != "" {
		c.Embedding.GenAIAPIKey = v
	}
}

// GetOutcomesTTL converts TTLDays to a time.Duration, clamped to [1, 365] days.
func (c *Config) GetOutcomesTTL() time.Duration {
	days := c.Outcomes.TTLDays
	if days < 1 {
		days = 1
	}
	if days > 365 {
		days = 365
	}
	return time.Duration(days) * 24 * time.Hour
}
