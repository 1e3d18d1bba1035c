package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cyberguard/internal/progression"
	"github.com/abhisek/cyberguard/internal/ui/theme"
)

// isolateEnv keeps tests away from the developer's config, keys, and data.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", dir)
	t.Setenv("CYBERGUARD_CONFIG", "")
	t.Setenv("CYBERGUARD_DB", "")
	t.Setenv("CYBERGUARD_LLM_PROVIDER", "none")
	t.Setenv("CYBERGUARD_EMBEDDING_PROVIDER", "local")
	t.Setenv("CYBERGUARD_LOG_LEVEL", "error")
	t.Cleanup(func() { theme.Enabled = true })
	return dir
}

// runCLI executes the root command with args and resets every flag after,
// since the command tree is shared package state.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--no-color"))
	t.Cleanup(func() { resetFlags(rootCmd) })

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestGradeCommand(t *testing.T) {
	isolateEnv(t)
	out, err := runCLI(t, `{"question": "What lures victims?", "userAnswers": ["Phishing"], "blanks": 1, "correctAnswers": [["phishing"]]}`, "grade")
	require.NoError(t, err)

	var resp struct {
		Blanks []struct {
			IsCorrect  bool   `json:"isCorrect"`
			UserAnswer string `json:"userAnswer"`
		} `json:"blanks"`
		Overall string `json:"overall"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "Correct!", resp.Overall)
	require.Len(t, resp.Blanks, 1)
	assert.True(t, resp.Blanks[0].IsCorrect)
	assert.Equal(t, "Phishing", resp.Blanks[0].UserAnswer)
}

func TestGradeCommandErrors(t *testing.T) {
	tests := []struct {
		name, in, overall string
	}{
		{"empty input", "", "Error: Invalid input format"},
		{"bad json", "{", "Error: Invalid input format"},
		{"blank mismatch", `{"question": "q", "userAnswers": ["a"], "blanks": 2, "correctAnswers": [["a"], ["b"]]}`, "Error: Expected 2 answers, got 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			out, err := runCLI(t, tt.in, "grade")
			assert.ErrorIs(t, err, errGradeFailed)

			var resp struct {
				Blanks  []any  `json:"blanks"`
				Overall string `json:"overall"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
			assert.Equal(t, tt.overall, resp.Overall)
			assert.Empty(t, resp.Blanks)
		})
	}
}

func TestQuizSession(t *testing.T) {
	dir := isolateEnv(t)
	db := filepath.Join(dir, "cg.db")

	out, err := runCLI(t, "doubt what is phishing?\n\nquit\n", "quiz", "--db", db, "--learner", "ana")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome to Basic Phishing!")
	assert.Contains(t, out, "Question: ")
	assert.Contains(t, out, "Error processing doubt.")
	assert.Contains(t, out, "Goodbye! Level 1, 0 points.")

	out, err = runCLI(t, "", "status", "--db", db, "--learner", "ana")
	require.NoError(t, err)
	assert.Contains(t, out, "Progress for ana")
	assert.Contains(t, out, "in progress")
	assert.Contains(t, out, "locked")
}

func TestQuizLockedModule(t *testing.T) {
	dir := isolateEnv(t)
	_, err := runCLI(t, "quit\n", "quiz", "--db", filepath.Join(dir, "cg.db"), "--module", "email-security")
	assert.ErrorContains(t, err, "module email-security is locked")
}

func TestResetRequiresConfirmation(t *testing.T) {
	dir := isolateEnv(t)
	db := filepath.Join(dir, "cg.db")

	_, err := runCLI(t, "", "reset", "--db", db, "--learner", "ana")
	assert.ErrorContains(t, err, "--yes")

	_, err = runCLI(t, "quit\n", "quiz", "--db", db, "--learner", "ana")
	require.NoError(t, err)
	out, err := runCLI(t, "", "reset", "--db", db, "--learner", "ana", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Reset 1 modules for ana.")
}

func TestModulesCommand(t *testing.T) {
	isolateEnv(t)
	out, err := runCLI(t, "", "modules")
	require.NoError(t, err)
	for _, id := range []string{"basic-phishing", "advanced-phishing", "social-engineering", "email-security"} {
		assert.Contains(t, out, id)
	}
	assert.Contains(t, out, "basic-phishing → advanced-phishing")
}

func TestNotesArgs(t *testing.T) {
	isolateEnv(t)
	_, err := runCLI(t, "", "notes")
	assert.ErrorContains(t, err, "module or --all")
}

func TestSplitAnswers(t *testing.T) {
	assert.Equal(t, []string{"spf", "dkim"}, splitAnswers(" spf | dkim "))
	assert.Equal(t, []string{"2"}, splitAnswers("2"))
	assert.Equal(t, []string{"a", ""}, splitAnswers("a|"))
}

func TestRenderStatus(t *testing.T) {
	theme.Enabled = false
	t.Cleanup(func() { theme.Enabled = true })

	var buf bytes.Buffer
	renderStatus(&buf, "ana", []progression.ModuleStatus{
		{Module: "m1", Name: "Basics", Level: 6, Answered: 12, Points: 210, Accuracy: 75, Started: true, Complete: true},
		{Module: "m2", Level: 1, Locked: false},
		{Module: "m3", Level: 1, Locked: true},
	}, progression.DefaultConfig())

	out := buf.String()
	assert.Contains(t, out, "Basics")
	assert.Contains(t, out, "██████░░░░ 6/10")
	assert.Contains(t, out, "12 answered, 75% correct, 210 points")
	assert.Contains(t, out, "not started")
	assert.Contains(t, out, "locked")
	assert.Contains(t, out, "Total points: 210")
}
