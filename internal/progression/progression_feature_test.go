package progression

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/abhisek/cyberguard/internal/grading"
	"github.com/abhisek/cyberguard/internal/questionbank"
	"github.com/abhisek/cyberguard/internal/store"
)

const featureBank = `{
  "version": "1.0.0",
  "categories": [
    {"id": "basic", "name": "Basic", "questions": [
      {"id": "b1", "question": "x", "difficulty": 1, "blanks": 1, "accepted": [["x"]]},
      {"id": "b2", "question": "y", "difficulty": 1, "blanks": 1, "accepted": [["y"]]},
      {"id": "b5", "question": "z", "difficulty": 5, "blanks": 1, "accepted": [["z"]]},
      {"id": "b10", "question": "w", "difficulty": 10, "blanks": 1, "accepted": [["w"]]}
    ]},
    {"id": "advanced", "name": "Advanced", "questions": [
      {"id": "a1", "question": "v", "difficulty": 1, "blanks": 1, "accepted": [["v"]]}
    ]}
  ]
}`

// TestProgressionFeatures executes the progression scenarios via godog.
func TestProgressionFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "progression",
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{"features"},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeScenario wires step definitions for the progression features.
func InitializeScenario(ctx *godog.ScenarioContext) {
	state := &progressionState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, state.reset()
	})

	ctx.Step(`^the streak policy$`, state.givenStreakPolicy)
	ctx.Step(`^the interval policy with (\d+) questions per level$`, state.givenIntervalPolicy)
	ctx.Step(`^learner "([^"]+)" starts module "([^"]+)"$`, state.learnerStarts)
	ctx.Step(`^learner "([^"]+)" is at level (\d+) in module "([^"]+)"$`, state.learnerAtLevel)
	ctx.Step(`^the learner answers correctly$`, state.answer(true))
	ctx.Step(`^the learner answers incorrectly$`, state.answer(false))
	ctx.Step(`^the learner answers a question that is not outstanding$`, state.answerStale)
	ctx.Step(`^the level is (\d+)$`, state.levelIs)
	ctx.Step(`^the streak is (\d+)$`, state.streakIs)
	ctx.Step(`^the points are (\d+)$`, state.pointsAre)
	ctx.Step(`^the total answered is (\d+)$`, state.totalIs)
	ctx.Step(`^the questions at level are (\d+)$`, state.atLevelIs)
	ctx.Step(`^the learner has an outstanding question$`, state.hasOutstanding)
	ctx.Step(`^the answer is rejected as stale$`, state.rejectedStale)
	ctx.Step(`^module "([^"]+)" is locked for "([^"]+)"$`, state.moduleLocked(true))
	ctx.Step(`^module "([^"]+)" is unlocked for "([^"]+)"$`, state.moduleLocked(false))
}

// progressionState holds scenario state for the feature tests.
type progressionState struct {
	cfg     Config
	bank    *questionbank.Bank
	repo    *store.MemoryProgressRepo
	svc     *Service
	key     Key
	current State
	lastErr error
}

func (s *progressionState) reset() error {
	b, err := questionbank.Load(strings.NewReader(featureBank))
	if err != nil {
		return err
	}
	s.cfg = DefaultConfig()
	s.bank = b
	s.repo = store.NewMemoryProgressRepo()
	s.svc = nil
	s.key = Key{}
	s.current = State{}
	s.lastErr = nil
	return nil
}

func (s *progressionState) service() *Service {
	if s.svc == nil {
		s.svc = NewService(s.repo, s.bank, Options{
			Config:   s.cfg,
			Modules:  []string{"basic", "advanced"},
			Selector: questionbank.NewSelector(rand.New(rand.NewPCG(3, 5))),
		})
	}
	return s.svc
}

func (s *progressionState) givenStreakPolicy() error {
	s.cfg.Policy = PolicyStreak
	s.svc = nil
	return nil
}

func (s *progressionState) givenIntervalPolicy(n int) error {
	s.cfg.Policy = PolicyInterval
	s.cfg.LevelQuestions = n
	s.svc = nil
	return nil
}

func (s *progressionState) learnerStarts(learner, module string) error {
	s.key = Key{Learner: learner, Module: module}
	st, _, err := s.service().Start(context.Background(), s.key, "")
	if err != nil {
		return err
	}
	s.current = st
	return nil
}

func (s *progressionState) learnerAtLevel(learner string, level int, module string) error {
	err := s.repo.Put(context.Background(), &store.ProgressRecord{LearnerID: learner, ModuleID: module, Level: level})
	if err != nil {
		return err
	}
	return s.learnerStarts(learner, module)
}

func (s *progressionState) answer(correct bool) func() error {
	return func() error {
		v := grading.VerdictIncorrect
		if correct {
			v = grading.VerdictCorrect
		}
		res, err := s.service().Advance(context.Background(), s.key, grading.Outcome{QuestionID: s.current.Outstanding, Verdict: v}, "")
		if err != nil {
			return err
		}
		s.current = res.State
		return nil
	}
}

func (s *progressionState) answerStale() error {
	_, s.lastErr = s.service().Advance(context.Background(), s.key, grading.Outcome{QuestionID: "elsewhere", Verdict: grading.VerdictCorrect}, "")
	st, err := s.service().Current(context.Background(), s.key)
	if err != nil {
		return err
	}
	s.current = st
	return nil
}

func (s *progressionState) levelIs(n int) error { return expectInt("level", s.current.Level, n) }
func (s *progressionState) streakIs(n int) error { return expectInt("streak", s.current.Streak, n) }
func (s *progressionState) pointsAre(n int) error { return expectInt("points", s.current.Points, n) }
func (s *progressionState) totalIs(n int) error { return expectInt("total", s.current.Total, n) }
func (s *progressionState) atLevelIs(n int) error { return expectInt("at-level", s.current.AtLevel, n) }

func (s *progressionState) hasOutstanding() error {
	if s.current.Outstanding == "" {
		return errors.New("no outstanding question")
	}
	return nil
}

func (s *progressionState) rejectedStale() error {
	if !errors.Is(s.lastErr, ErrStaleQuestion) {
		return fmt.Errorf("expected stale rejection, got %v", s.lastErr)
	}
	return nil
}

func (s *progressionState) moduleLocked(want bool) func(module, learner string) error {
	return func(module, learner string) error {
		statuses, err := s.service().Status(context.Background(), learner)
		if err != nil {
			return err
		}
		for _, ms := range statuses {
			if ms.Module == module {
				if ms.Locked != want {
					return fmt.Errorf("module %s locked = %v, want %v", module, ms.Locked, want)
				}
				return nil
			}
		}
		return fmt.Errorf("module %s not in learning path", module)
	}
}

func expectInt(what string, got, want int) error {
	if got != want {
		return fmt.Errorf("%s = %d, want %d", what, got, want)
	}
	return nil
}
