package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const (
	tutorSystemPrompt = `You are a cybersecurity awareness tutor. Answer clearly and concisely for a non-expert learner. Stay on the topic of the question.`
	notesSystemPrompt = `You write cybersecurity study guides for non-experts. Reply with HTML only, without markdown fences.`
)

// tuning is the per-purpose request shape.
type tuning struct {
	system      string
	temperature float64
	notes       bool
}

var purposeTuning = map[string]tuning{
	PurposeFeedback: {system: tutorSystemPrompt, temperature: 0.3},
	PurposeDoubt:    {system: tutorSystemPrompt, temperature: 0.5},
	PurposeNotes:    {system: notesSystemPrompt, temperature: 0.7, notes: true},
}

// Oracle turns a prompt into text. It is the only surface the rest of the
// engine sees of text generation.
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)

	// Available reports whether a backend is configured. It is informational;
	// callers still handle Generate errors.
	Available() bool

	// ModelID names the backing model, or "" when unavailable.
	ModelID() string
}

type availableOracle struct {
	provider       Provider
	maxTokens      int
	notesMaxTokens int
	timeout        time.Duration
}

// NewOracle wraps a configured Provider.
func NewOracle(p Provider, cfg Config) Oracle {
	return &availableOracle{
		provider:       p,
		maxTokens:      cfg.MaxTokens,
		notesMaxTokens: max(cfg.NotesMaxTokens, cfg.MaxTokens),
		timeout:        cfg.Timeout,
	}
}

// request shapes prompt for the purpose carried by ctx. Unknown purposes
// get the tutor prompt and provider-default temperature.
func (o *availableOracle) request(ctx context.Context, prompt string) Request {
	t, ok := purposeTuning[PurposeFrom(ctx)]
	if !ok {
		t = tuning{system: tutorSystemPrompt}
	}
	tokens := o.maxTokens
	if t.notes {
		tokens = o.notesMaxTokens
	}
	req := UserPrompt(t.system, prompt, tokens)
	req.Temperature = t.temperature
	return req
}

func (o *availableOracle) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errEmptyPrompt
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	resp, err := o.provider.Generate(ctx, o.request(ctx, prompt))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

func (o *availableOracle) Available() bool { return true }

func (o *availableOracle) ModelID() string { return o.provider.ModelID() }

type unavailableOracle struct {
	reason error
}

// Unavailable returns an Oracle whose every call fails with
// ErrProviderUnavailable wrapping reason.
func Unavailable(reason error) Oracle {
	return unavailableOracle{reason: reason}
}

func (u unavailableOracle) Generate(context.Context, string) (string, error) {
	return "", &ErrProviderUnavailable{Err: u.reason}
}

func (u unavailableOracle) Available() bool { return false }

func (u unavailableOracle) ModelID() string { return "" }

// GenerateOr returns the generated text, or fallback when generation fails
// or comes back empty. Failures are logged, never returned.
func GenerateOr(ctx context.Context, o Oracle, prompt, fallback string, logger *slog.Logger) string {
	text, err := o.Generate(ctx, prompt)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("text generation failed, using fallback", "purpose", PurposeFrom(ctx), "error", err)
		return fallback
	}
	if text == "" {
		return fallback
	}
	return text
}
