package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config selects and configures the embedding backend.
type Config struct {
	// Provider is one of "openai", "gemini", "local", "none".
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Dimensions int    `yaml:"dimensions"`
}

// DefaultConfig uses the offline hashing embedder, graded at the default
// threshold (see LocalProvider).
func DefaultConfig() Config {
	return Config{Provider: "local"}
}

// NewProvider builds the configured Provider wrapped with logging. A missing
// key or unknown backend yields the Unavailable variant instead of an error,
// so grading fails closed per request rather than at startup.
func NewProvider(ctx context.Context, cfg Config, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case "openai":
		base, err = NewOpenAIProvider(cfg)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg)
	case "local", "":
		base = NewLocalProvider(cfg.Dimensions)
	case "none":
		err = fmt.Errorf("embedding disabled by configuration")
	default:
		err = fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
	if err != nil {
		logger.Warn("embedding provider unavailable", "provider", cfg.Provider, "error", err)
		return Unavailable(err)
	}

	return WithLogging(base, logger)
}

// LoggingProvider logs each Encode call at debug level and failures at warn.
type LoggingProvider struct {
	inner  Provider
	logger *slog.Logger
}

// WithLogging wraps a Provider with structured logging.
func WithLogging(p Provider, logger *slog.Logger) Provider {
	return &LoggingProvider{inner: p, logger: logger}
}

func (l *LoggingProvider) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := l.inner.Encode(ctx, texts)
	attrs := []any{
		"model", l.inner.ModelID(),
		"texts", len(texts),
		"latency_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		l.logger.Warn("embedding request failed", append(attrs, "error", err)...)
		return nil, err
	}
	l.logger.Debug("embedding request", attrs...)
	return vecs, nil
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
