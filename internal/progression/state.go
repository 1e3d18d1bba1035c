// Package progression tracks each learner's difficulty level per module and
// decides which question they see next.
package progression

import (
	"slices"
	"time"

	"github.com/abhisek/cyberguard/internal/store"
)

// Key identifies one progression record.
type Key struct {
	Learner string
	Module  string
}

func (k Key) String() string { return k.Learner + "/" + k.Module }

// State is a learner's position within one module.
type State struct {
	Level       int
	AtLevel     int // questions answered since the last level change
	Total       int
	Correct     int
	Streak      int
	Points      int
	Outstanding string // question id, "" when none
	Recent      []string
	UpdatedAt   time.Time
	Version     int64 // stored write count, 0 before the first save
}

// Accuracy is the percentage of answers that were correct.
func (s State) Accuracy() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total) * 100
}

// Trigger names what caused a level change.
type Trigger string

const (
	TriggerNone     Trigger = ""
	TriggerStreak   Trigger = "streak"
	TriggerInterval Trigger = "interval"
	TriggerDemote   Trigger = "incorrect"
)

// Transition records the effect of one outcome for display and event logging.
type Transition struct {
	From          int
	To            int
	Trigger       Trigger
	PointsAwarded int
}

// LevelUp reports whether the outcome raised the level.
func (t Transition) LevelUp() bool { return t.To > t.From }

// LevelDown reports whether the outcome lowered the level.
func (t Transition) LevelDown() bool { return t.To < t.From }

func fromRecord(rec *store.ProgressRecord) State {
	return State{
		Level:       rec.Level,
		AtLevel:     rec.AtLevel,
		Total:       rec.Total,
		Correct:     rec.Correct,
		Streak:      rec.Streak,
		Points:      rec.Points,
		Outstanding: rec.Outstanding,
		Recent:      slices.Clone(rec.Recent),
		UpdatedAt:   rec.UpdatedAt,
		Version:     rec.Version,
	}
}

func toRecord(k Key, s State) *store.ProgressRecord {
	return &store.ProgressRecord{
		LearnerID:   k.Learner,
		ModuleID:    k.Module,
		Level:       s.Level,
		AtLevel:     s.AtLevel,
		Total:       s.Total,
		Correct:     s.Correct,
		Streak:      s.Streak,
		Points:      s.Points,
		Outstanding: s.Outstanding,
		Recent:      slices.Clone(s.Recent),
		UpdatedAt:   s.UpdatedAt,
		Version:     s.Version,
	}
}
