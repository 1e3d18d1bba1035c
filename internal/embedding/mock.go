package embedding

import (
	"context"
	"sync"
)

// MockProvider is a deterministic Provider for tests. Known texts map to
// fixed vectors; unknown texts get a zero vector. Every batch is recorded.
type MockProvider struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	Calls   [][]string
}

// NewMockProvider creates a MockProvider serving the given vectors.
func NewMockProvider(vectors map[string][]float32) *MockProvider {
	if vectors == nil {
		vectors = make(map[string][]float32)
	}
	return &MockProvider{vectors: vectors}
}

// FailWith makes every subsequent Encode call return err.
func (m *MockProvider) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Set registers the vector returned for text.
func (m *MockProvider) Set(text string, vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[text] = vec
}

func (m *MockProvider) Encode(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch := append([]string(nil), texts...)
	m.Calls = append(m.Calls, batch)

	if m.err != nil {
		return nil, m.err
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := m.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = make([]float32, 3)
	}
	return out, nil
}

func (m *MockProvider) ModelID() string {
	return "mock"
}

// CallCount returns the number of Encode calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Encoded returns every text sent to the provider, in call order.
func (m *MockProvider) Encoded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []string
	for _, c := range m.Calls {
		all = append(all, c...)
	}
	return all
}
