package theme

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)

// States
var (
	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	Locked = lipgloss.NewStyle().
		Foreground(TextDim)

	Complete = lipgloss.NewStyle().
			Foreground(Success)

	InProgress = lipgloss.NewStyle().
			Foreground(Accent)

	ProgressFilled = lipgloss.NewStyle().
			Foreground(Secondary)

	ProgressEmpty = lipgloss.NewStyle().
			Foreground(Border)
)

// Enabled turns styling on. When false Render returns text unchanged, for
// NO_COLOR and piped output.
var Enabled = true

// Render applies s to text when styling is enabled.
func Render(s lipgloss.Style, text string) string {
	if !Enabled {
		return text
	}
	return s.Render(text)
}

// Badge labels a module's gating state.
func Badge(locked, complete, started bool) string {
	switch {
	case locked:
		return Render(Locked, "locked")
	case complete:
		return Render(Complete, "complete")
	case started:
		return Render(InProgress, "in progress")
	}
	return Render(Hint, "not started")
}

// LevelBar draws level out of top as a fixed-width bar.
func LevelBar(level, top int) string {
	top = max(top, 1)
	level = min(max(level, 0), top)
	return Render(ProgressFilled, strings.Repeat("█", level)) +
		Render(ProgressEmpty, strings.Repeat("░", top-level)) +
		fmt.Sprintf(" %d/%d", level, top)
}
