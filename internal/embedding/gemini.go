package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "text-embedding-004"

// GeminiProvider embeds text with the Gemini embeddings API.
type GeminiProvider struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiProvider creates a Gemini embedding provider.
func NewGeminiProvider(ctx context.Context, cfg Config) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	return &GeminiProvider{client: client, model: model, dimensions: cfg.Dimensions}, nil
}

func (p *GeminiProvider) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = &genai.Content{
			Role:  "user",
			Parts: []*genai.Part{{Text: t}},
		}
	}

	var config *genai.EmbedContentConfig
	if p.dimensions > 0 {
		dims := int32(p.dimensions)
		config = &genai.EmbedContentConfig{OutputDimensionality: &dims}
	}

	result, err := p.client.Models.EmbedContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, &ErrProviderUnavailable{Err: err}
	}

	out := make([][]float32, len(result.Embeddings))
	for i, e := range result.Embeddings {
		if e == nil {
			return nil, &ErrInvalidResponse{Err: fmt.Errorf("embedding %d is empty", i)}
		}
		out[i] = e.Values
	}
	if err := checkCount(out, len(texts)); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *GeminiProvider) ModelID() string {
	return p.model
}
