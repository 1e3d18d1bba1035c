package llm

import (
	"fmt"
	"os"
	"time"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "anthropic", "openai", "gemini", "mock", "none". Empty means
	// discover from the standard API key variables.
	Provider string `yaml:"provider"`

	Anthropic AnthropicConfig `yaml:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Retry     RetryConfig     `yaml:"retry"`

	// Timeout bounds a single Generate call including retries.
	Timeout time.Duration `yaml:"timeout"`

	// MaxTokens caps generated feedback and doubt answers.
	MaxTokens int `yaml:"max_tokens"`

	// NotesMaxTokens caps a generated study guide.
	NotesMaxTokens int `yaml:"notes_max_tokens"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"` // Default: "claude-haiku"
	BaseURL string `yaml:"base_url"`
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`    // Default: "gpt-4o-mini"
	BaseURL string `yaml:"base_url"` // OpenRouter, Ollama and other compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // Default: "gemini-flash"
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Anthropic: AnthropicConfig{Model: "claude-haiku"},
		OpenAI:    OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:    GeminiConfig{Model: "gemini-flash"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout:        30 * time.Second,
		MaxTokens:      1024,
		NotesMaxTokens: 4096,
	}
}

// ConfigFromEnv builds a Config from environment variables on top of the
// defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	ApplyEnv(&cfg)
	return cfg
}

// ApplyEnv overrides cfg with CYBERGUARD_* variables, then fills an empty
// Provider from the standard vendor key variables.
func ApplyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	set(&cfg.Provider, "CYBERGUARD_LLM_PROVIDER")
	set(&cfg.Anthropic.APIKey, "CYBERGUARD_ANTHROPIC_API_KEY")
	set(&cfg.Anthropic.Model, "CYBERGUARD_ANTHROPIC_MODEL")
	set(&cfg.OpenAI.APIKey, "CYBERGUARD_OPENAI_API_KEY")
	set(&cfg.OpenAI.Model, "CYBERGUARD_OPENAI_MODEL")
	set(&cfg.OpenAI.BaseURL, "CYBERGUARD_OPENAI_BASE_URL")
	set(&cfg.Gemini.APIKey, "CYBERGUARD_GEMINI_API_KEY")
	set(&cfg.Gemini.Model, "CYBERGUARD_GEMINI_MODEL")

	if cfg.Provider != "" {
		return
	}
	if found, ok := DiscoverConfig(); ok {
		cfg.Provider = found.Provider
		switch found.Provider {
		case "gemini":
			cfg.Gemini.APIKey = found.Gemini.APIKey
		case "openai":
			cfg.OpenAI.APIKey = found.OpenAI.APIKey
		case "anthropic":
			cfg.Anthropic.APIKey = found.Anthropic.APIKey
		}
	}
}

// DiscoverConfig probes standard API key env vars in priority order
// (Gemini → OpenAI → Anthropic) and returns a Config for the first
// provider whose key is found. Returns (Config{}, false) if none found.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider = "gemini"
		cfg.Gemini.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = k
		return cfg, true
	}

	return Config{}, false
}

// Validate checks that the selected provider has its required credentials.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("CYBERGUARD_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "openai":
		if c.OpenAI.APIKey == "" && c.OpenAI.BaseURL == "" {
			return fmt.Errorf("CYBERGUARD_OPENAI_API_KEY is required for the openai provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("CYBERGUARD_GEMINI_API_KEY is required for the gemini provider")
		}
	case "mock", "none", "":
		// No credentials needed.
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
