package questionbank

import (
	"context"
	"testing"

	"github.com/abhisek/cyberguard/internal/embedding"
	"github.com/abhisek/cyberguard/internal/grading"
)

// The default threshold with the local embedder must separate every correct
// option of the built-in bank from its distractors.
func TestDefaultBankLocalCalibration(t *testing.T) {
	bank, err := Default()
	if err != nil {
		t.Fatalf("load default bank: %v", err)
	}
	g := grading.New(embedding.NewLocalProvider(0), grading.DefaultConfig(), nil)
	ctx := context.Background()

	checked := 0
	for _, cat := range bank.Categories() {
		for _, q := range cat.Questions {
			if q.Kind() != KindMultipleChoice {
				continue
			}
			for i, opt := range q.Options {
				out, err := g.Grade(ctx, grading.Request{
					QuestionID:     q.ID,
					Question:       q.Text,
					Blanks:         1,
					UserAnswers:    []string{opt},
					CorrectAnswers: q.AcceptedAnswers(),
				})
				if err != nil {
					t.Fatalf("%s option %d: %v", q.ID, i+1, err)
				}
				want := i == *q.CorrectIdx
				if out.Correct() != want {
					t.Errorf("%s option %d %q: correct = %v, want %v (similarity %.3f)",
						q.ID, i+1, opt, out.Correct(), want, out.Blanks[0].Similarity)
				}
				checked++
			}
		}
	}
	if checked == 0 {
		t.Fatal("built-in bank has no multiple-choice questions")
	}
}
