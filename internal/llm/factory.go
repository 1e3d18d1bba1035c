package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// errDisabled is the Unavailable reason when no provider is configured.
var errDisabled = errors.New("no LLM provider configured")

// NewProvider creates a Provider from configuration, wrapped with retry and
// logging middleware. events may be nil.
func NewProvider(ctx context.Context, cfg Config, events EventRecorder, logger *slog.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		return NewMockProvider(), nil
	case "", "none":
		return nil, errDisabled
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// caller → retry → logging → base
	logged := WithLogging(base, events, logger)
	return WithRetry(logged, cfg.Retry, logger), nil
}

// OpenOracle builds the configured Oracle. Any construction failure yields
// the Unavailable variant so callers only ever handle Generate errors.
func OpenOracle(ctx context.Context, cfg Config, events EventRecorder, logger *slog.Logger) Oracle {
	if logger == nil {
		logger = slog.Default()
	}
	p, err := NewProvider(ctx, cfg, events, logger)
	if err != nil {
		if !errors.Is(err, errDisabled) {
			logger.Warn("LLM provider unavailable", "provider", cfg.Provider, "error", err)
		}
		return Unavailable(err)
	}
	return NewOracle(p, cfg)
}
