// Package tutor runs one learner turn: present a question, grade the reply,
// move progression, and explain the result.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/cyberguard/internal/grading"
	"github.com/abhisek/cyberguard/internal/llm"
	"github.com/abhisek/cyberguard/internal/progression"
	"github.com/abhisek/cyberguard/internal/questionbank"
	"github.com/abhisek/cyberguard/internal/store"
)

// ErrNoQuestion is returned by Answer when nothing is outstanding.
var ErrNoQuestion = errors.New("no outstanding question; start the module first")

// GradingRecorder persists graded turns.
type GradingRecorder interface {
	AppendGradingEvent(ctx context.Context, data store.GradingEventData) (string, error)
}

// Turn is what the learner sees after one interaction.
type Turn struct {
	State      progression.State
	Question   *questionbank.Question // the question to answer next
	Outcome    *grading.Outcome       // nil for Start
	Transition progression.Transition
	Graded     bool
	Feedback   string
}

// Service coordinates a learner turn. It is safe for concurrent use; turns
// for the same learner and module are serialized by progression.
type Service struct {
	bank     *questionbank.Bank
	grader   *grading.Grader
	progress *progression.Service
	events   GradingRecorder
	oracle   llm.Oracle
	logger   *slog.Logger
}

// NewService creates a tutor. events may be nil.
func NewService(bank *questionbank.Bank, grader *grading.Grader, progress *progression.Service, events GradingRecorder, oracle llm.Oracle, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if oracle == nil {
		oracle = llm.Unavailable(errors.New("no oracle configured"))
	}
	return &Service{
		bank:     bank,
		grader:   grader,
		progress: progress,
		events:   events,
		oracle:   oracle,
		logger:   logger,
	}
}

// Start returns the learner's outstanding question for the module,
// selecting one if needed.
func (s *Service) Start(ctx context.Context, k progression.Key, topic string) (Turn, error) {
	st, q, err := s.progress.Start(ctx, k, topic)
	if err != nil {
		return Turn{}, err
	}
	return Turn{State: st, Question: q}, nil
}

// Answer grades raw against the outstanding question. If grading fails the
// state is unchanged and the turn carries a could-not-grade message.
// Persistence and stale-question errors are returned.
func (s *Service) Answer(ctx context.Context, k progression.Key, raw []string, topic string) (Turn, error) {
	st, err := s.progress.Current(ctx, k)
	if err != nil {
		return Turn{}, err
	}
	q, ok := s.bank.Question(st.Outstanding)
	if !ok {
		return Turn{State: st}, ErrNoQuestion
	}

	answers := q.ResolveAnswers(raw)
	out, err := s.grader.Grade(ctx, grading.Request{
		QuestionID:     q.ID,
		Question:       q.Text,
		Blanks:         q.Blanks(),
		UserAnswers:    answers,
		CorrectAnswers: q.AcceptedAnswers(),
	})
	if err != nil {
		s.logger.Warn("grading failed", "key", k.String(), "question", q.ID, "error", err)
		return Turn{
			State:    st,
			Question: q,
			Outcome:  &out,
			Feedback: fmt.Sprintf("Sorry, I could not grade that answer: %s. Please try again.", out.Diagnostic),
		}, nil
	}

	res, err := s.progress.Advance(ctx, k, out, topic)
	if err != nil {
		return Turn{State: st, Question: q, Outcome: &out}, err
	}
	s.record(ctx, k, out, res)

	fctx := llm.WithPurpose(ctx, llm.PurposeFeedback)
	feedback := llm.GenerateOr(fctx, s.oracle, feedbackPrompt(q, answers, out), fallbackFeedback(q, out), s.logger)
	if note := transitionNote(res.Transition); note != "" {
		feedback += "\n\n" + note
	}

	return Turn{
		State:      res.State,
		Question:   res.Next,
		Outcome:    &out,
		Transition: res.Transition,
		Graded:     true,
		Feedback:   feedback,
	}, nil
}

// Doubt answers a free-form question from the learner, in the context of
// their outstanding question when there is one.
func (s *Service) Doubt(ctx context.Context, k progression.Key, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return DoubtFallback
	}
	var q *questionbank.Question
	if st, err := s.progress.Current(ctx, k); err == nil {
		q, _ = s.bank.Question(st.Outstanding)
	}
	ctx = llm.WithPurpose(ctx, llm.PurposeDoubt)
	return llm.GenerateOr(ctx, s.oracle, doubtPrompt(q, text), DoubtFallback, s.logger)
}

func (s *Service) record(ctx context.Context, k progression.Key, out grading.Outcome, res progression.Result) {
	if s.events == nil {
		return
	}
	data := store.GradingEventData{
		LearnerID:     k.Learner,
		ModuleID:      k.Module,
		QuestionID:    out.QuestionID,
		Verdict:       string(out.Verdict),
		Correct:       out.Correct(),
		LevelBefore:   res.Transition.From,
		LevelAfter:    res.Transition.To,
		PointsAwarded: res.Transition.PointsAwarded,
		Answers:       make([]string, len(out.Blanks)),
		Similarities:  make([]float64, len(out.Blanks)),
	}
	for i, b := range out.Blanks {
		data.Answers[i] = b.UserAnswer
		data.Similarities[i] = b.Similarity
	}
	// The turn already committed; record it even if the caller gave up.
	if _, err := s.events.AppendGradingEvent(context.WithoutCancel(ctx), data); err != nil {
		s.logger.Warn("failed to record grading event", "key", k.String(), "error", err)
	}
}
