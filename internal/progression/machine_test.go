package progression

import (
	"reflect"
	"testing"
)

func apply(m *Machine, s State, answers ...bool) (State, []Transition) {
	var ts []Transition
	for _, c := range answers {
		var t Transition
		s, t = m.Apply(s, c)
		ts = append(ts, t)
	}
	return s, ts
}

func TestInitialState(t *testing.T) {
	m := NewMachine(DefaultConfig())
	got := m.Initial()
	want := State{Level: 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("initial = %+v, want %+v", got, want)
	}
}

func TestStreakPolicy(t *testing.T) {
	m := NewMachine(DefaultConfig())

	tests := []struct {
		name    string
		start   State
		answers []bool
		want    State
	}{
		{
			name:    "one correct answer",
			start:   State{Level: 1},
			answers: []bool{true},
			want:    State{Level: 1, AtLevel: 1, Total: 1, Correct: 1, Streak: 1, Points: 10},
		},
		{
			name:    "two correct advance and reset streak",
			start:   State{Level: 1},
			answers: []bool{true, true},
			want:    State{Level: 2, AtLevel: 0, Total: 2, Correct: 2, Streak: 0, Points: 20},
		},
		{
			name:    "points use the level before the change",
			start:   State{Level: 3, Streak: 1},
			answers: []bool{true},
			want:    State{Level: 4, AtLevel: 0, Total: 1, Correct: 1, Streak: 0, Points: 30},
		},
		{
			name:    "incorrect demotes and resets streak",
			start:   State{Level: 3, Streak: 1, AtLevel: 4},
			answers: []bool{false},
			want:    State{Level: 2, AtLevel: 0, Total: 1, Streak: 0},
		},
		{
			name:    "demotion clamps at min level",
			start:   State{Level: 1, AtLevel: 2},
			answers: []bool{false},
			want:    State{Level: 1, AtLevel: 3, Total: 1},
		},
		{
			name:    "advance clamps at max level",
			start:   State{Level: 10, Streak: 1},
			answers: []bool{true},
			want:    State{Level: 10, AtLevel: 0, Total: 1, Correct: 1, Streak: 0, Points: 100},
		},
		{
			name:    "mixed run",
			start:   State{Level: 1},
			answers: []bool{true, false, true, true, true},
			want:    State{Level: 2, AtLevel: 1, Total: 5, Correct: 4, Streak: 1, Points: 10 + 10 + 10 + 20},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := apply(m, tt.start, tt.answers...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got  %+v\nwant %+v", got, tt.want)
			}
		})
	}
}

func TestStreakTransitions(t *testing.T) {
	m := NewMachine(DefaultConfig())
	_, ts := apply(m, State{Level: 2}, true, true, false)

	if ts[0].Trigger != TriggerNone || ts[0].LevelUp() || ts[0].PointsAwarded != 20 {
		t.Errorf("first: %+v", ts[0])
	}
	if ts[1].Trigger != TriggerStreak || !ts[1].LevelUp() || ts[1].From != 2 || ts[1].To != 3 {
		t.Errorf("second: %+v", ts[1])
	}
	if ts[2].Trigger != TriggerDemote || !ts[2].LevelDown() || ts[2].PointsAwarded != 0 {
		t.Errorf("third: %+v", ts[2])
	}
}

func TestIntervalPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = PolicyInterval
	cfg.LevelQuestions = 3
	m := NewMachine(cfg)

	s, ts := apply(m, m.Initial(), false, false, false)
	if s.Level != 2 || s.AtLevel != 0 || s.Total != 3 || s.Correct != 0 {
		t.Fatalf("after 3 wrong answers: %+v", s)
	}
	if ts[2].Trigger != TriggerInterval {
		t.Errorf("trigger = %q, want interval", ts[2].Trigger)
	}

	// Correctness does not move the level before the interval elapses.
	s, _ = apply(m, s, true, true)
	if s.Level != 2 || s.AtLevel != 2 || s.Streak != 2 || s.Points != 40 {
		t.Fatalf("mid interval: %+v", s)
	}

	top := State{Level: 10, AtLevel: 2}
	s, _ = apply(m, top, true)
	if s.Level != 10 || s.AtLevel != 0 {
		t.Fatalf("at max level: %+v", s)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	m := NewMachine(DefaultConfig())
	in := State{Level: 2, Streak: 1, Recent: []string{"a"}}
	out, _ := m.Apply(in, true)
	out.Recent[0] = "changed"
	if in.Level != 2 || in.Streak != 1 || in.Recent[0] != "a" {
		t.Fatalf("input mutated: %+v", in)
	}
}

func TestRemember(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecentWindow = 3
	m := NewMachine(cfg)

	var s State
	for _, id := range []string{"a", "b", "c", "b", "d"} {
		s = m.Remember(s, id)
	}
	if want := []string{"c", "b", "d"}; !reflect.DeepEqual(s.Recent, want) {
		t.Fatalf("recent = %v, want %v", s.Recent, want)
	}

	cfg.RecentWindow = 0
	if got := NewMachine(cfg).Remember(State{}, "a"); got.Recent != nil {
		t.Fatalf("disabled window kept %v", got.Recent)
	}
}

func TestComplete(t *testing.T) {
	m := NewMachine(DefaultConfig())
	if m.Complete(State{Level: 5}) {
		t.Error("level 5 should not be complete")
	}
	if !m.Complete(State{Level: 6}) {
		t.Error("level 6 should be complete")
	}
}

func TestAccuracy(t *testing.T) {
	if got := (State{}).Accuracy(); got != 0 {
		t.Errorf("empty accuracy = %v", got)
	}
	if got := (State{Total: 4, Correct: 3}).Accuracy(); got != 75 {
		t.Errorf("accuracy = %v, want 75", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"interval", func(c *Config) { c.Policy = PolicyInterval }, true},
		{"unknown policy", func(c *Config) { c.Policy = "random" }, false},
		{"zero min", func(c *Config) { c.MinLevel = 0 }, false},
		{"min above max", func(c *Config) { c.MinLevel, c.MaxLevel = 5, 4 }, false},
		{"zero streak", func(c *Config) { c.StreakThreshold = 0 }, false},
		{"zero interval", func(c *Config) { c.LevelQuestions = 0 }, false},
		{"negative points", func(c *Config) { c.BasePoints = -1 }, false},
		{"negative window", func(c *Config) { c.RecentWindow = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
