package grading

import (
	"math"
	"slices"
)

// DefaultThreshold is calibrated for all-MiniLM-L6-v2 style sentence
// embeddings and also used with the local embedder. Other models need their
// own calibration.
const DefaultThreshold = 0.65

// Cosine returns dot(a,b) / (|a|·|b|). It is 0 when either vector has zero
// magnitude or the vectors differ in length. The result is clamped to [-1, 1]
// to absorb floating error.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(-1, math.Min(1, sim))
}

// Match is the Similarity Scorer's verdict for one blank.
type Match struct {
	// Similarity is the highest cosine similarity against any accepted answer.
	// It never drops below 0.
	Similarity float64

	// Best is the accepted answer achieving Similarity, empty if none scored
	// above 0.
	Best string

	// Exact reports that the normalized answer is a member of the accepted set.
	Exact bool

	Correct bool
}

// Scorer decides whether one user answer matches an accepted-answer set.
type Scorer struct {
	Threshold float64

	// LexicalFallback accepts a verbatim (normalized) member of the accepted
	// set even when the similarity is below Threshold.
	LexicalFallback bool
}

// Score compares a normalized answer and its vector against the normalized
// accepted answers and their vectors. accepted and acceptedVecs must be the
// same length. An empty answer is incorrect without looking at vectors.
func (s Scorer) Score(answer string, answerVec []float32, accepted []string, acceptedVecs [][]float32) Match {
	if answer == "" {
		return Match{}
	}

	var m Match
	for j, vec := range acceptedVecs {
		sim := Cosine(answerVec, vec)
		if sim > m.Similarity {
			m.Similarity = sim
			m.Best = accepted[j]
		}
	}

	m.Exact = slices.Contains(accepted, answer)
	m.Correct = m.Similarity >= s.Threshold || (s.LexicalFallback && m.Exact)
	return m
}

// round2 rounds to two decimals for display.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
