// Package config assembles runtime configuration from built-in defaults, an
// optional YAML file, a .env file, and CYBERGUARD_* environment variables,
// in that order of increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/cyberguard/internal/embedding"
	"github.com/abhisek/cyberguard/internal/grading"
	"github.com/abhisek/cyberguard/internal/llm"
	"github.com/abhisek/cyberguard/internal/progression"
	"github.com/abhisek/cyberguard/internal/questionbank"
)

// DefaultModules is the learning path of the built-in question bank.
var DefaultModules = []string{"basic-phishing", "advanced-phishing", "social-engineering", "email-security"}

// Config is the complete runtime configuration.
type Config struct {
	// DB is the SQLite path. Empty means store.DefaultDBPath.
	DB string `yaml:"db"`
	// QuestionBank is a JSON bank file. Empty means the built-in bank.
	QuestionBank string `yaml:"question_bank"`
	LogLevel     string `yaml:"log_level"`

	Grading     grading.Config     `yaml:"grading"`
	Embedding   embedding.Config   `yaml:"embedding"`
	LLM         llm.Config         `yaml:"llm"`
	Progression progression.Config `yaml:"progression"`

	// Modules is the ordered learning path used for gating.
	Modules []string `yaml:"modules"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:    "info",
		Grading:     grading.DefaultConfig(),
		Embedding:   embedding.DefaultConfig(),
		LLM:         llm.DefaultConfig(),
		Progression: progression.DefaultConfig(),
		Modules:     append([]string(nil), DefaultModules...),
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/cyberguard/config.yml, falling back
// to ~/.config.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "cyberguard", "config.yml"), nil
}

// Load builds the configuration. An explicit path (or CYBERGUARD_CONFIG)
// must exist; the default path is used only when present.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if env := os.Getenv("CYBERGUARD_CONFIG"); env != "" {
			path, explicit = env, true
		} else if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := loadFile(&cfg, path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with CYBERGUARD_* variables and the LLM key
// discovery in llm.ApplyEnv.
func ApplyEnv(cfg *Config) error {
	str := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	var errs []error

	str(&cfg.DB, "CYBERGUARD_DB")
	str(&cfg.QuestionBank, "CYBERGUARD_QUESTION_BANK")
	str(&cfg.LogLevel, "CYBERGUARD_LOG_LEVEL")

	if v := os.Getenv("CYBERGUARD_GRADING_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("CYBERGUARD_GRADING_THRESHOLD=%q: %w", v, err))
		}
		cfg.Grading.Threshold = f
	}
	if v := os.Getenv("CYBERGUARD_LEXICAL_FALLBACK"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CYBERGUARD_LEXICAL_FALLBACK=%q: %w", v, err))
		}
		cfg.Grading.LexicalFallback = b
	}
	if v := os.Getenv("CYBERGUARD_EMBED_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CYBERGUARD_EMBED_TIMEOUT=%q: %w", v, err))
		}
		cfg.Grading.EmbedTimeout = d
	}

	str(&cfg.Embedding.Provider, "CYBERGUARD_EMBEDDING_PROVIDER")
	str(&cfg.Embedding.Model, "CYBERGUARD_EMBEDDING_MODEL")
	str(&cfg.Embedding.APIKey, "CYBERGUARD_EMBEDDING_API_KEY")
	str(&cfg.Embedding.BaseURL, "CYBERGUARD_EMBEDDING_BASE_URL")
	if cfg.Embedding.APIKey == "" {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			cfg.Embedding.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	if v := os.Getenv("CYBERGUARD_PROGRESSION_POLICY"); v != "" {
		cfg.Progression.Policy = progression.Policy(v)
	}
	if v := os.Getenv("CYBERGUARD_MODULES"); v != "" {
		cfg.Modules = splitList(v)
	}

	llm.ApplyEnv(&cfg.LLM)
	return errors.Join(errs...)
}

// Validate reports every inconsistent setting.
func (c Config) Validate() error {
	var errs []error
	if c.Grading.Threshold <= 0 || c.Grading.Threshold > 1 {
		errs = append(errs, fmt.Errorf("grading.threshold must be in (0, 1], got %v", c.Grading.Threshold))
	}
	if c.Grading.EmbedTimeout < 0 {
		errs = append(errs, fmt.Errorf("grading.embed_timeout must not be negative, got %v", c.Grading.EmbedTimeout))
	}
	switch c.Embedding.Provider {
	case "openai", "gemini", "local", "none", "":
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider: %q", c.Embedding.Provider))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error", "":
	default:
		errs = append(errs, fmt.Errorf("unknown log level: %q", c.LogLevel))
	}
	if err := c.Progression.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("progression: %w", err))
	}
	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("llm: %w", err))
	}
	return errors.Join(errs...)
}

// CheckModules verifies every configured module exists in bank.
func (c Config) CheckModules(bank *questionbank.Bank) error {
	var missing []string
	for _, id := range c.Modules {
		if _, ok := bank.Category(id); !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("modules not in question bank: %s", strings.Join(missing, ", "))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
