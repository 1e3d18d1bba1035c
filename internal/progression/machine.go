package progression

import (
	"fmt"
	"slices"
)

// Policy selects the level-advance rule.
type Policy string

const (
	// PolicyStreak advances after StreakThreshold consecutive correct
	// answers and demotes on any incorrect answer.
	PolicyStreak Policy = "streak"
	// PolicyInterval advances after LevelQuestions answers at a level,
	// whatever their correctness.
	PolicyInterval Policy = "interval"
)

// Config tunes the state machine.
type Config struct {
	Policy          Policy `yaml:"policy"`
	MinLevel        int    `yaml:"min_level"`
	MaxLevel        int    `yaml:"max_level"`
	StreakThreshold int    `yaml:"streak_threshold"`
	LevelQuestions  int    `yaml:"level_questions"`
	BasePoints      int    `yaml:"base_points"`
	CompleteLevel   int    `yaml:"complete_level"`
	RecentWindow    int    `yaml:"recent_window"`
}

// DefaultConfig returns the streak policy over levels 1..10.
func DefaultConfig() Config {
	return Config{
		Policy:          PolicyStreak,
		MinLevel:        1,
		MaxLevel:        10,
		StreakThreshold: 2,
		LevelQuestions:  25,
		BasePoints:      10,
		CompleteLevel:   6,
		RecentWindow:    20,
	}
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch c.Policy {
	case PolicyStreak, PolicyInterval:
	default:
		return fmt.Errorf("unknown progression policy %q (want %q or %q)", c.Policy, PolicyStreak, PolicyInterval)
	}
	if c.MinLevel < 1 {
		return fmt.Errorf("min_level must be at least 1, got %d", c.MinLevel)
	}
	if c.MinLevel > c.MaxLevel {
		return fmt.Errorf("min_level %d exceeds max_level %d", c.MinLevel, c.MaxLevel)
	}
	if c.StreakThreshold < 1 {
		return fmt.Errorf("streak_threshold must be at least 1, got %d", c.StreakThreshold)
	}
	if c.LevelQuestions < 1 {
		return fmt.Errorf("level_questions must be at least 1, got %d", c.LevelQuestions)
	}
	if c.BasePoints < 0 {
		return fmt.Errorf("base_points must not be negative, got %d", c.BasePoints)
	}
	if c.RecentWindow < 0 {
		return fmt.Errorf("recent_window must not be negative, got %d", c.RecentWindow)
	}
	return nil
}

// Machine applies grading outcomes to progression state. It is pure: Apply
// never mutates its input and has no side effects.
type Machine struct {
	cfg Config
}

// NewMachine creates a Machine. cfg must be valid.
func NewMachine(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// Config returns the machine's configuration.
func (m *Machine) Config() Config { return m.cfg }

// Initial is the state on first contact.
func (m *Machine) Initial() State {
	return State{Level: m.cfg.MinLevel}
}

// Apply folds one outcome into s and returns the new state.
func (m *Machine) Apply(s State, correct bool) (State, Transition) {
	next := s
	next.Recent = slices.Clone(s.Recent)
	t := Transition{From: s.Level}

	next.Total++
	next.AtLevel++
	if correct {
		next.Streak++
		next.Correct++
		t.PointsAwarded = m.cfg.BasePoints * s.Level
		next.Points += t.PointsAwarded
	} else {
		next.Streak = 0
	}

	switch m.cfg.Policy {
	case PolicyInterval:
		if next.AtLevel >= m.cfg.LevelQuestions {
			next.Level = m.clamp(next.Level + 1)
			next.AtLevel = 0
			t.Trigger = TriggerInterval
		}
	default:
		switch {
		case correct && next.Streak >= m.cfg.StreakThreshold:
			next.Level = m.clamp(next.Level + 1)
			next.Streak = 0
			next.AtLevel = 0
			t.Trigger = TriggerStreak
		case !correct:
			next.Level = m.clamp(next.Level - 1)
			t.Trigger = TriggerDemote
		}
	}

	// A promotion resets the counter even when clamped at max level; a
	// demotion clamped at min level keeps it.
	if next.Level != s.Level {
		next.AtLevel = 0
	}
	t.To = next.Level
	return next, t
}

// Remember appends id to the recent-question window, keeping the newest
// RecentWindow entries.
func (m *Machine) Remember(s State, id string) State {
	if id == "" || m.cfg.RecentWindow == 0 {
		return s
	}
	recent := slices.DeleteFunc(slices.Clone(s.Recent), func(r string) bool { return r == id })
	recent = append(recent, id)
	if over := len(recent) - m.cfg.RecentWindow; over > 0 {
		recent = recent[over:]
	}
	s.Recent = recent
	return s
}

// Complete reports whether a module at s counts as finished for gating.
func (m *Machine) Complete(s State) bool {
	return s.Level >= m.cfg.CompleteLevel
}

func (m *Machine) clamp(level int) int {
	return max(m.cfg.MinLevel, min(m.cfg.MaxLevel, level))
}
