package grading

import (
	"errors"
	"fmt"

	"github.com/abhisek/cyberguard/internal/embedding"
)

// ErrNoTexts means a request left nothing to embed.
var ErrNoTexts = errors.New("no valid texts to encode")

// ValidationError reports a request whose shape violates an invariant. It is
// always recoverable by the caller and never touches persisted state.
type ValidationError struct {
	// Field is "answers", "correct answer sets", or "input".
	Field    string
	Expected int
	Got      int
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("Expected %d %s, got %d", e.Expected, e.Field, e.Got)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ProviderError wraps an embedding failure. Grading fails closed on it.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsProviderError reports whether err came from the embedding backend.
func IsProviderError(err error) bool {
	var pe *ProviderError
	var unavail *embedding.ErrProviderUnavailable
	var inv *embedding.ErrInvalidResponse
	return errors.As(err, &pe) || errors.As(err, &unavail) || errors.As(err, &inv)
}

// Diagnostic is the structured failure object handed across the boundary.
type Diagnostic struct {
	Category string
	Details  string
}

// Diagnose classifies err into a Diagnostic.
func Diagnose(err error) Diagnostic {
	var ve *ValidationError
	switch {
	case err == nil:
		return Diagnostic{}
	case errors.As(err, &ve):
		if ve.Field == "input" {
			return Diagnostic{Category: "Invalid input format", Details: ve.Error()}
		}
		return Diagnostic{
			Category: ve.Error(),
			Details:  fmt.Sprintf("Input validation failed: %s must be a list with length equal to blanks", fieldKey(ve.Field)),
		}
	default:
		return Diagnostic{Category: "Processing failed", Details: err.Error()}
	}
}

func fieldKey(field string) string {
	if field == "answers" {
		return "userAnswers"
	}
	return "correctAnswers"
}
