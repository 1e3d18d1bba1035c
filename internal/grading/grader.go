package grading

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/cyberguard/internal/embedding"
)

// Verdict is the overall result of a graded question.
type Verdict string

const (
	VerdictCorrect   Verdict = "Correct!"
	VerdictIncorrect Verdict = "Incorrect"
	VerdictError     Verdict = "Error"
)

// Request is one multi-blank question submitted for grading.
// Invariant: len(UserAnswers) == len(CorrectAnswers) == Blanks.
type Request struct {
	QuestionID     string
	Question       string
	Blanks         int
	UserAnswers    []string
	CorrectAnswers [][]string
}

// BlankResult is the verdict for one blank.
type BlankResult struct {
	Correct     bool
	UserAnswer  string   // as submitted
	Accepted    []string // normalized accepted answers
	Explanation string
	Similarity  float64 // rounded to 2 decimals
	BestMatch   string
}

// Outcome is the graded question. On failure Blanks is empty, Verdict is
// VerdictError and Diagnostic carries the reason.
type Outcome struct {
	QuestionID string
	Blanks     []BlankResult
	Verdict    Verdict
	Diagnostic string
}

// Correct reports whether every blank was answered correctly.
func (o Outcome) Correct() bool {
	return o.Verdict == VerdictCorrect
}

// Config tunes the grader.
type Config struct {
	Threshold       float64       `yaml:"threshold"`
	LexicalFallback bool          `yaml:"lexical_fallback"`
	EmbedTimeout    time.Duration `yaml:"embed_timeout"`
}

// DefaultConfig returns the reference calibration.
func DefaultConfig() Config {
	return Config{
		Threshold:       DefaultThreshold,
		LexicalFallback: true,
		EmbedTimeout:    10 * time.Second,
	}
}

// Grader grades multi-blank answers with one batched embedding call per
// question. It holds no per-request state, so Grade is idempotent and safe
// for concurrent use.
type Grader struct {
	embedder embedding.Provider
	scorer   Scorer
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a Grader.
func New(embedder embedding.Provider, cfg Config, logger *slog.Logger) *Grader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Grader{
		embedder: embedder,
		scorer:   Scorer{Threshold: cfg.Threshold, LexicalFallback: cfg.LexicalFallback},
		timeout:  cfg.EmbedTimeout,
		logger:   logger,
	}
}

// Threshold returns the similarity threshold in use.
func (g *Grader) Threshold() float64 {
	return g.scorer.Threshold
}

// Grade validates req, embeds every needed string in a single call, and
// scores each blank in index order. Any failure yields an Outcome with no
// blanks plus a non-nil error; nothing is graded partially.
func (g *Grader) Grade(ctx context.Context, req Request) (Outcome, error) {
	if err := validate(req); err != nil {
		return failed(req, err), err
	}

	answers := normalizeAll(req.UserAnswers)
	accepted := make([][]string, len(req.CorrectAnswers))
	for i, set := range req.CorrectAnswers {
		accepted[i] = normalizeAll(set)
	}

	plan := planBatch(answers, accepted)
	if len(plan.texts) == 0 && !plan.anyCandidate {
		err := ErrNoTexts
		return failed(req, err), err
	}

	var vectors [][]float32
	if len(plan.texts) > 0 {
		var err error
		vectors, err = g.encode(ctx, plan.texts)
		if err != nil {
			perr := &ProviderError{Err: err}
			return failed(req, perr), perr
		}
	}

	out := Outcome{
		QuestionID: req.QuestionID,
		Blanks:     make([]BlankResult, req.Blanks),
		Verdict:    VerdictCorrect,
	}
	for i := range req.Blanks {
		var (
			userVec []float32
			accVecs [][]float32
		)
		if answers[i] != "" {
			userVec = vectors[plan.user[i]]
			accVecs = make([][]float32, len(accepted[i]))
			for j := range accepted[i] {
				accVecs[j] = vectors[plan.accepted[i][j]]
			}
		}

		m := g.scorer.Score(answers[i], userVec, accepted[i], accVecs)
		out.Blanks[i] = BlankResult{
			Correct:     m.Correct,
			UserAnswer:  req.UserAnswers[i],
			Accepted:    accepted[i],
			Explanation: explain(answers[i], accepted[i], m, g.scorer.Threshold),
			Similarity:  round2(m.Similarity),
			BestMatch:   m.Best,
		}
		if !m.Correct {
			out.Verdict = VerdictIncorrect
		}
	}

	g.logger.Debug("graded question",
		"question", req.QuestionID,
		"blanks", req.Blanks,
		"verdict", out.Verdict,
		"model", g.embedder.ModelID(),
	)
	return out, nil
}

func (g *Grader) encode(ctx context.Context, texts []string) ([][]float32, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	vectors, err := g.embedder.Encode(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, &embedding.ErrInvalidResponse{Want: len(texts), Got: len(vectors)}
	}
	return vectors, nil
}

func validate(req Request) error {
	if req.Blanks < 0 {
		return &ValidationError{Field: "input", Err: fmt.Errorf("blanks must not be negative, got %d", req.Blanks)}
	}
	if len(req.UserAnswers) != req.Blanks {
		return &ValidationError{Field: "answers", Expected: req.Blanks, Got: len(req.UserAnswers)}
	}
	if len(req.CorrectAnswers) != req.Blanks {
		return &ValidationError{Field: "correct answer sets", Expected: req.Blanks, Got: len(req.CorrectAnswers)}
	}
	return nil
}

func failed(req Request, err error) Outcome {
	return Outcome{
		QuestionID: req.QuestionID,
		Blanks:     []BlankResult{},
		Verdict:    VerdictError,
		Diagnostic: err.Error(),
	}
}

// batchPlan is the stable index mapping recorded before the embedding call.
// texts holds distinct strings; user[i] and accepted[i][j] index into it.
// User answers are laid out first in submission order, then accepted answers
// per blank in supplied order; duplicates reuse the first slot.
type batchPlan struct {
	texts        []string
	user         []int
	accepted     [][]int
	anyCandidate bool
}

func planBatch(answers []string, accepted [][]string) batchPlan {
	p := batchPlan{
		user:     make([]int, len(answers)),
		accepted: make([][]int, len(accepted)),
	}
	slot := make(map[string]int)
	add := func(s string) int {
		if i, ok := slot[s]; ok {
			return i
		}
		slot[s] = len(p.texts)
		p.texts = append(p.texts, s)
		return slot[s]
	}

	for i, a := range answers {
		p.user[i] = -1
		if a != "" {
			p.user[i] = add(a)
		}
	}
	for i, set := range accepted {
		if len(set) > 0 {
			p.anyCandidate = true
		}
		// Accepted answers are only needed for blanks that will be scored.
		if answers[i] == "" {
			continue
		}
		p.accepted[i] = make([]int, len(set))
		for j, s := range set {
			p.accepted[i][j] = add(s)
		}
	}
	return p
}
