package embedding

import "fmt"

// ErrProviderUnavailable indicates the embedding backend is down, unreachable,
// timed out, or not configured.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding provider unavailable: %v", e.Err)
	}
	return "embedding provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the backend answered with a payload that does
// not line up with the request (wrong vector count, empty vectors).
type ErrInvalidResponse struct {
	Want int
	Got  int
	Err  error
}

func (e *ErrInvalidResponse) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid embedding response: %v", e.Err)
	}
	return fmt.Sprintf("invalid embedding response: want %d vectors, got %d", e.Want, e.Got)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// checkCount verifies a backend returned one vector per input.
func checkCount(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return &ErrInvalidResponse{Want: want, Got: len(vectors)}
	}
	return nil
}
