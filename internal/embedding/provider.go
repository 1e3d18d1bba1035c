package embedding

import "context"

// Provider maps a batch of strings to fixed-length vectors.
//
// Encode returns exactly one vector per input text, in input order. Vectors
// from one Provider share a dimensionality and are deterministic for a fixed
// model version. Implementations must be safe for concurrent use.
type Provider interface {
	// Encode embeds texts in a single provider call.
	Encode(ctx context.Context, texts []string) ([][]float32, error)

	// ModelID returns the embedding model identifier. Similarity thresholds
	// are calibrated per model, so callers should log it with scores.
	ModelID() string
}

// unavailableProvider is the variant injected when no embedding backend is
// configured. Every call fails with ErrProviderUnavailable.
type unavailableProvider struct {
	reason error
}

// Unavailable returns a Provider that always fails. Callers handle the
// failure the same way they handle a backend outage.
func Unavailable(reason error) Provider {
	return &unavailableProvider{reason: reason}
}

func (u *unavailableProvider) Encode(_ context.Context, _ []string) ([][]float32, error) {
	return nil, &ErrProviderUnavailable{Err: u.reason}
}

func (u *unavailableProvider) ModelID() string {
	return "unavailable"
}
