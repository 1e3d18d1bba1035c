package grading

import (
	"fmt"
	"strings"
)

const (
	explainCorrect  = "Answer is correct."
	explainNoAnswer = "No answer provided for this blank."
)

func explain(answer string, accepted []string, m Match, threshold float64) string {
	switch {
	case answer == "":
		return explainNoAnswer
	case m.Correct:
		return explainCorrect
	case m.Exact:
		// Only reachable with the lexical fallback switched off.
		return fmt.Sprintf("Answer '%s' is correct but not recognized due to low similarity score (%.2f).",
			answer, m.Similarity)
	default:
		return fmt.Sprintf("Answer '%s' does not match any correct options: %s. Similarity score: %.2f (threshold: %s).",
			answer, strings.Join(accepted, ", "), m.Similarity, formatThreshold(threshold))
	}
}

// formatThreshold prints the threshold without trailing zeros (0.65, 0.7).
func formatThreshold(t float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", t), "0"), ".")
}
