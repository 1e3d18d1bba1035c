package questionbank

import (
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

// ErrNoQuestions is returned when a category holds no questions at all.
var ErrNoQuestions = errors.New("no questions available")

// Selector picks the next question for a learner. It is safe for
// concurrent use.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector returns a Selector drawing from rng. A nil rng seeds one
// from the clock.
func NewSelector(rng *rand.Rand) *Selector {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Selector{rng: rng}
}

// Next picks a question from cat at the given difficulty. The filter is
// relaxed in order (difficulty and topic, then difficulty, then any
// difficulty) until it yields candidates. Within a stage, questions not in
// recent win; recent ones are used only when nothing else matches.
func (s *Selector) Next(cat *Category, difficulty int, topic string, recent []string) (*Question, error) {
	if cat == nil || len(cat.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	var stages [][]*Question
	if topic != "" {
		stages = append(stages, cat.ByDifficultyTopic(difficulty, topic))
	}
	stages = append(stages, cat.ByDifficulty(difficulty), cat.Questions)

	for _, pool := range stages {
		if len(pool) == 0 {
			continue
		}
		if fresh := notRecent(pool, recent); len(fresh) > 0 {
			return s.pick(fresh), nil
		}
		return s.pick(pool), nil
	}
	return nil, ErrNoQuestions
}

func (s *Selector) pick(pool []*Question) *Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pool[s.rng.IntN(len(pool))]
}

func notRecent(pool []*Question, recent []string) []*Question {
	if len(recent) == 0 {
		return pool
	}
	out := make([]*Question, 0, len(pool))
	for _, q := range pool {
		if !slices.Contains(recent, q.ID) {
			out = append(out, q)
		}
	}
	return out
}
