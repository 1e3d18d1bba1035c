// Package notes generates per-module study guides through the text oracle.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/cyberguard/internal/cache"
	"github.com/abhisek/cyberguard/internal/llm"
	"github.com/abhisek/cyberguard/internal/questionbank"
	"github.com/abhisek/cyberguard/internal/store"
)

// Fallback is returned when generation fails. It is never cached.
const Fallback = "<h3>Error generating notes. Please try again.</h3>"

// WarmConcurrency bounds parallel generation in Warm.
const WarmConcurrency = 2

// ErrUnknownModule is returned for module ids missing from the bank.
var ErrUnknownModule = errors.New("unknown module")

// Service returns study guides, generating each at most once.
type Service struct {
	bank   *questionbank.Bank
	oracle llm.Oracle
	cache  *cache.Cache[string]
	logger *slog.Logger
}

// NewService creates a notes service. repo may be nil for memory-only
// caching.
func NewService(bank *questionbank.Bank, oracle llm.Oracle, repo store.NotesRepo, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	var backing cache.Backing[string]
	if repo != nil {
		backing = &notesBacking{repo: repo, oracle: oracle}
	}
	return &Service{
		bank:   bank,
		oracle: oracle,
		cache:  cache.New(backing),
		logger: logger,
	}
}

// Notes returns the study guide for moduleID as HTML. Generation failures
// yield Fallback; only an unknown module is an error.
func (s *Service) Notes(ctx context.Context, moduleID string) (string, error) {
	cat, ok := s.bank.Category(moduleID)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModule, moduleID)
	}

	html, err := s.cache.GetOrCompute(ctx, moduleID, func(ctx context.Context) (string, error) {
		ctx = llm.WithPurpose(ctx, llm.PurposeNotes)
		out, err := s.oracle.Generate(ctx, buildPrompt(cat))
		if err != nil {
			return "", err
		}
		out = stripFences(out)
		if out == "" {
			return "", errors.New("empty notes")
		}
		return out, nil
	})
	switch {
	case err != nil && html != "":
		s.logger.Warn("notes generated but not persisted", "module", moduleID, "error", err)
		return html, nil
	case err != nil:
		s.logger.Warn("notes generation failed", "module", moduleID, "error", err)
		return Fallback, nil
	}
	return html, nil
}

// Warm generates notes for modules ahead of time, at most WarmConcurrency
// at once. It returns the first unknown-module or context error.
func (s *Service) Warm(ctx context.Context, modules []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(WarmConcurrency)
	for _, id := range modules {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := s.Notes(ctx, id)
			return err
		})
	}
	return g.Wait()
}

func buildPrompt(cat *questionbank.Category) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert cybersecurity author. Write a detailed study guide chapter for: %q.\n", cat.Name)
	if cat.Description != "" {
		fmt.Fprintf(&b, "Module summary: %s\n", cat.Description)
	}
	if len(cat.Syllabus) > 0 {
		b.WriteString("\nSyllabus:\n")
		for _, topic := range cat.Syllabus {
			fmt.Fprintf(&b, "- %s\n", topic)
		}
	}
	b.WriteString(`
Output ONLY structured HTML, without code fences.
Structure:
1. <h1>Module Syllabus</h1>: bullet points of what is covered.
2. <h1>Introduction</h1>: a deep dive into the concept.
3. <h2>[Topic Headers]</h2>: one detailed section with examples per syllabus topic.
4. <h1>Key Takeaways</h1>: a summary.`)
	return b.String()
}

// stripFences removes a surrounding ``` or ```html fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

type notesBacking struct {
	repo   store.NotesRepo
	oracle llm.Oracle
}

func (b *notesBacking) Load(ctx context.Context, moduleID string) (string, bool, error) {
	n, err := b.repo.GetNotes(ctx, moduleID)
	if err != nil || n == nil {
		return "", false, err
	}
	return n.Content, true, nil
}

func (b *notesBacking) Store(ctx context.Context, moduleID, html string) error {
	return b.repo.PutNotes(ctx, &store.Notes{ModuleID: moduleID, Content: html, Model: b.oracle.ModelID()})
}
