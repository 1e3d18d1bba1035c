package progression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/cyberguard/internal/grading"
	"github.com/abhisek/cyberguard/internal/questionbank"
	"github.com/abhisek/cyberguard/internal/store"
)

var (
	// ErrStaleQuestion is returned when an outcome is for a question that
	// is no longer outstanding.
	ErrStaleQuestion = errors.New("outcome is not for the outstanding question")
	// ErrUngraded is returned for outcomes whose grading failed.
	ErrUngraded = errors.New("outcome was not graded")
	// ErrUnknownModule is returned for module ids missing from the bank.
	ErrUnknownModule = errors.New("unknown module")
)

// PersistenceError reports a failed read or write of progression state.
// The turn that produced it did not complete.
type PersistenceError struct {
	Op  string // load, save, delete
	Key Key
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s progress %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Options configures a Service.
type Options struct {
	Config   Config
	Modules  []string // learning path order; empty means bank order
	Selector *questionbank.Selector
	Logger   *slog.Logger
}

// Service owns every read-modify-write of progression state. Calls for the
// same key are serialized in process and version-checked in the store, so
// sessions sharing a database cannot overwrite each other; distinct keys
// never contend.
type Service struct {
	repo     store.ProgressRepo
	bank     *questionbank.Bank
	machine  *Machine
	selector *questionbank.Selector
	modules  []string
	locks    KeyedMutex
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a progression service over repo and bank.
func NewService(repo store.ProgressRepo, bank *questionbank.Bank, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Selector == nil {
		opts.Selector = questionbank.NewSelector(nil)
	}
	modules := opts.Modules
	if len(modules) == 0 {
		for _, c := range bank.Categories() {
			modules = append(modules, c.ID)
		}
	}
	return &Service{
		repo:     repo,
		bank:     bank,
		machine:  NewMachine(opts.Config),
		selector: opts.Selector,
		modules:  modules,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// Machine returns the underlying state machine.
func (s *Service) Machine() *Machine { return s.machine }

// Modules returns the learning path in order.
func (s *Service) Modules() []string { return append([]string(nil), s.modules...) }

// Current returns the stored state for k, or the initial state when the
// learner has not started the module yet. Nothing is written.
func (s *Service) Current(ctx context.Context, k Key) (State, error) {
	if _, err := s.category(k.Module); err != nil {
		return State{}, err
	}
	return s.load(ctx, k)
}

// Start makes sure k has an outstanding question and returns it. An
// existing outstanding question is kept; otherwise one is selected at the
// current level and persisted. If another session writes k first, its
// question is used instead.
func (s *Service) Start(ctx context.Context, k Key, topic string) (State, *questionbank.Question, error) {
	cat, err := s.category(k.Module)
	if err != nil {
		return State{}, nil, err
	}

	unlock := s.locks.Lock(k)
	defer unlock()

	for attempt := 1; ; attempt++ {
		st, err := s.load(ctx, k)
		if err != nil {
			return State{}, nil, err
		}
		if q, ok := s.bank.Question(st.Outstanding); ok {
			return st, q, nil
		}

		q, err := s.selector.Next(cat, st.Level, topic, st.Recent)
		if err != nil {
			return st, nil, fmt.Errorf("select question for %s: %w", k, err)
		}
		st.Outstanding = q.ID
		st = s.machine.Remember(st, q.ID)
		err = s.save(ctx, k, &st)
		if errors.Is(err, store.ErrConflict) && attempt < startAttempts {
			continue
		}
		if err != nil {
			return State{}, nil, err
		}
		return st, q, nil
	}
}

// startAttempts bounds how often Start reloads after losing a write race.
const startAttempts = 3

// Result is the effect of one Advance call.
type Result struct {
	State      State
	Transition Transition
	Next       *questionbank.Question // nil when no question could be selected
}

// Advance applies one grading outcome to k's state, selects the next
// question at the resulting level, and persists both. Outcomes that failed
// grading or that are not for the outstanding question leave the state
// untouched. The write is conditional on the version that was read, so an
// answer committed meanwhile by another process makes this one stale.
func (s *Service) Advance(ctx context.Context, k Key, outcome grading.Outcome, topic string) (Result, error) {
	if outcome.Verdict == grading.VerdictError {
		return Result{}, ErrUngraded
	}
	cat, err := s.category(k.Module)
	if err != nil {
		return Result{}, err
	}

	unlock := s.locks.Lock(k)
	defer unlock()

	st, err := s.load(ctx, k)
	if err != nil {
		return Result{}, err
	}
	if st.Outstanding == "" || st.Outstanding != outcome.QuestionID {
		return Result{State: st}, fmt.Errorf("%w: got %q, outstanding %q", ErrStaleQuestion, outcome.QuestionID, st.Outstanding)
	}

	next, t := s.machine.Apply(st, outcome.Correct())
	next.Outstanding = ""

	q, err := s.selector.Next(cat, next.Level, topic, next.Recent)
	if err != nil {
		s.logger.Warn("no next question", "key", k.String(), "level", next.Level, "err", err)
	} else {
		next.Outstanding = q.ID
		next = s.machine.Remember(next, q.ID)
	}

	if err := s.save(ctx, k, &next); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return Result{State: st}, fmt.Errorf("%w: %s was answered in another session", ErrStaleQuestion, k)
		}
		return Result{}, err
	}

	if t.From != t.To {
		s.logger.Info("level changed", "key", k.String(), "from", t.From, "to", t.To, "trigger", t.Trigger)
	}
	return Result{State: next, Transition: t, Next: q}, nil
}

// ModuleStatus is one learning-path entry for reporting.
type ModuleStatus struct {
	Module   string
	Name     string
	Level    int
	Answered int
	Points   int
	Accuracy float64
	Started  bool
	Complete bool
	Locked   bool
}

// Status reports the learner's standing across the learning path. A module
// is locked until the one before it is complete.
func (s *Service) Status(ctx context.Context, learner string) ([]ModuleStatus, error) {
	recs, err := s.repo.List(ctx, learner)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Key: Key{Learner: learner}, Err: err}
	}
	byModule := make(map[string]State, len(recs))
	for i := range recs {
		byModule[recs[i].ModuleID] = fromRecord(&recs[i])
	}

	out := make([]ModuleStatus, 0, len(s.modules))
	prevComplete := true
	for _, id := range s.modules {
		st, started := byModule[id]
		if !started {
			st = s.machine.Initial()
		}
		ms := ModuleStatus{
			Module:   id,
			Level:    st.Level,
			Answered: st.Total,
			Points:   st.Points,
			Accuracy: st.Accuracy(),
			Started:  started,
			Complete: started && s.machine.Complete(st),
			Locked:   !prevComplete,
		}
		if c, ok := s.bank.Category(id); ok {
			ms.Name = c.Name
		}
		out = append(out, ms)
		prevComplete = ms.Complete
	}
	return out, nil
}

// Reset deletes every progression record for learner.
func (s *Service) Reset(ctx context.Context, learner string) (int, error) {
	n, err := s.repo.Delete(ctx, learner)
	if err != nil {
		return 0, &PersistenceError{Op: "delete", Key: Key{Learner: learner}, Err: err}
	}
	return n, nil
}

func (s *Service) category(id string) (*questionbank.Category, error) {
	c, ok := s.bank.Category(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, id)
	}
	return c, nil
}

func (s *Service) load(ctx context.Context, k Key) (State, error) {
	rec, err := s.repo.Get(ctx, k.Learner, k.Module)
	if err != nil {
		return State{}, &PersistenceError{Op: "load", Key: k, Err: err}
	}
	if rec == nil {
		return s.machine.Initial(), nil
	}
	return fromRecord(rec), nil
}

func (s *Service) save(ctx context.Context, k Key, st *State) error {
	st.UpdatedAt = s.now().UTC()
	rec := toRecord(k, *st)
	if err := s.repo.Put(ctx, rec); err != nil {
		return &PersistenceError{Op: "save", Key: k, Err: err}
	}
	st.Version = rec.Version
	return nil
}
