// Package questionbank holds the read-only question data shared by every
// learner turn. A Bank is built once at startup and never mutated.
package questionbank

import (
	"slices"
	"strconv"
	"strings"
)

// Difficulty bounds for questions.
const (
	MinDifficulty = 1
	MaxDifficulty = 10
)

// Kind distinguishes answer formats.
type Kind string

const (
	KindMultipleChoice Kind = "multiple_choice"
	KindFillBlank      Kind = "fill_blank"
)

// Question is one quiz item. Multiple-choice questions carry Options and
// CorrectIndex; fill-in-the-blank questions carry Blanks and Accepted.
type Question struct {
	ID          string     `json:"id"`
	Text        string     `json:"question"`
	Difficulty  int        `json:"difficulty"`
	Topic       string     `json:"topic,omitempty"`
	Explanation string     `json:"explanation,omitempty"`
	Options     []string   `json:"options,omitempty"`
	CorrectIdx  *int       `json:"correct_answer,omitempty"`
	BlankCount  int        `json:"blanks,omitempty"`
	Accepted    [][]string `json:"accepted,omitempty"`
}

// Kind reports the question's answer format.
func (q *Question) Kind() Kind {
	if len(q.Options) > 0 {
		return KindMultipleChoice
	}
	return KindFillBlank
}

// Blanks is the number of answers the question expects.
func (q *Question) Blanks() int {
	if q.Kind() == KindMultipleChoice {
		return 1
	}
	return q.BlankCount
}

// CorrectOption returns the text of the correct option, or "" for
// fill-in-the-blank questions.
func (q *Question) CorrectOption() string {
	if q.Kind() != KindMultipleChoice || q.CorrectIdx == nil {
		return ""
	}
	return q.Options[*q.CorrectIdx]
}

// AcceptedAnswers returns one accepted-answer set per blank. A
// multiple-choice question accepts exactly its correct option.
func (q *Question) AcceptedAnswers() [][]string {
	if q.Kind() == KindMultipleChoice {
		return [][]string{{q.CorrectOption()}}
	}
	out := make([][]string, len(q.Accepted))
	for i, set := range q.Accepted {
		out[i] = slices.Clone(set)
	}
	return out
}

// ResolveAnswers maps raw learner input onto answers. For multiple choice a
// 1-based option number selects that option's text; anything else is kept
// verbatim.
func (q *Question) ResolveAnswers(raw []string) []string {
	out := slices.Clone(raw)
	if q.Kind() != KindMultipleChoice || len(out) != 1 {
		return out
	}
	if n, err := strconv.Atoi(strings.TrimSpace(out[0])); err == nil && n >= 1 && n <= len(q.Options) {
		out[0] = q.Options[n-1]
	}
	return out
}

// Category is one learning module.
type Category struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Syllabus    []string    `json:"syllabus,omitempty"`
	Questions   []*Question `json:"questions"`
}

// ByDifficulty returns the questions at exactly difficulty d.
func (c *Category) ByDifficulty(d int) []*Question {
	var out []*Question
	for _, q := range c.Questions {
		if q.Difficulty == d {
			out = append(out, q)
		}
	}
	return out
}

// ByDifficultyTopic returns the questions at difficulty d with the given
// topic. Topics compare case-insensitively.
func (c *Category) ByDifficultyTopic(d int, topic string) []*Question {
	var out []*Question
	for _, q := range c.Questions {
		if q.Difficulty == d && strings.EqualFold(q.Topic, topic) {
			out = append(out, q)
		}
	}
	return out
}

// Topics lists the distinct topics in file order.
func (c *Category) Topics() []string {
	var out []string
	for _, q := range c.Questions {
		if q.Topic != "" && !slices.Contains(out, q.Topic) {
			out = append(out, q.Topic)
		}
	}
	return out
}

// Bank is an immutable, validated question bank.
type Bank struct {
	version    string
	categories []*Category
	byID       map[string]*Category
	questions  map[string]*Question
}

// Version returns the bank's format version.
func (b *Bank) Version() string { return b.version }

// Categories returns the categories in file order.
func (b *Bank) Categories() []*Category {
	return slices.Clone(b.categories)
}

// Category looks up a category by id.
func (b *Bank) Category(id string) (*Category, bool) {
	c, ok := b.byID[id]
	return c, ok
}

// Question looks up a question by id across all categories.
func (b *Bank) Question(id string) (*Question, bool) {
	q, ok := b.questions[id]
	return q, ok
}
