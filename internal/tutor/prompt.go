package tutor

import (
	"fmt"
	"strings"

	"github.com/abhisek/cyberguard/internal/grading"
	"github.com/abhisek/cyberguard/internal/progression"
	"github.com/abhisek/cyberguard/internal/questionbank"
)

// DoubtFallback is shown when a doubt cannot be answered.
const DoubtFallback = "Error processing doubt."

// FormatQuestion renders q with 1-based option numbers.
func FormatQuestion(q *questionbank.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", q.Text)
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
	}
	if q.Kind() == questionbank.KindFillBlank && q.Blanks() > 1 {
		fmt.Fprintf(&b, "(%d blanks: separate answers with |)\n", q.Blanks())
	}
	return b.String()
}

// Welcome renders the module greeting for a learner at st.
func Welcome(cat *questionbank.Category, st progression.State, cfg progression.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Welcome to %s!\n", cat.Name)
	fmt.Fprintf(&b, "Level %d/%d\n", st.Level, cfg.MaxLevel)
	if cfg.Policy == progression.PolicyInterval {
		fmt.Fprintf(&b, "Progress: %d/%d\n", st.AtLevel, cfg.LevelQuestions)
	} else {
		fmt.Fprintf(&b, "Streak: %d/%d\n", st.Streak, cfg.StreakThreshold)
	}
	fmt.Fprintf(&b, "Points: %d\n", st.Points)
	return b.String()
}

func feedbackPrompt(q *questionbank.Question, answers []string, out grading.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %q\n", q.Text)
	fmt.Fprintf(&b, "Learner answer: %q\n", strings.Join(answers, " | "))
	fmt.Fprintf(&b, "Accepted answers: %s\n", formatAccepted(q.AcceptedAnswers()))
	if q.Explanation != "" {
		fmt.Fprintf(&b, "Explanation: %q\n", q.Explanation)
	}
	fmt.Fprintf(&b, "Grading result: %s\n", out.Verdict)
	for i, bl := range out.Blanks {
		fmt.Fprintf(&b, "Blank %d: %s\n", i+1, bl.Explanation)
	}
	b.WriteString(`
Task: In 2-4 sentences, tell the learner whether they were right and why.
If they were wrong, explain the correct answer without lecturing.`)
	return b.String()
}

// fallbackFeedback is the canned feedback used when the oracle fails.
func fallbackFeedback(q *questionbank.Question, out grading.Outcome) string {
	var b strings.Builder
	if out.Correct() {
		b.WriteString("Correct!")
	} else {
		fmt.Fprintf(&b, "Incorrect. The answer is: %s.", formatAccepted(q.AcceptedAnswers()))
	}
	if q.Explanation != "" {
		b.WriteString("\n")
		b.WriteString(q.Explanation)
	}
	return b.String()
}

func doubtPrompt(q *questionbank.Question, doubt string) string {
	var b strings.Builder
	if q != nil {
		fmt.Fprintf(&b, "The learner is working on this question: %q\n", q.Text)
		b.WriteString("Do not reveal the answer.\n\n")
	}
	fmt.Fprintf(&b, "Learner doubt: %s\n", doubt)
	b.WriteString("\nAnswer the doubt in a short paragraph.")
	return b.String()
}

func formatAccepted(sets [][]string) string {
	parts := make([]string, len(sets))
	for i, set := range sets {
		if len(set) > 0 {
			parts[i] = set[0]
		}
	}
	return strings.Join(parts, " | ")
}

func transitionNote(t progression.Transition) string {
	switch {
	case t.LevelUp():
		return fmt.Sprintf("Level up! You are now at level %d.", t.To)
	case t.LevelDown():
		return fmt.Sprintf("Difficulty lowered to level %d.", t.To)
	}
	return ""
}
