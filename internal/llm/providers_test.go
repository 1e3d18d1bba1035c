package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

type providerCase struct {
	name    string
	build   func(t *testing.T, h http.HandlerFunc) Provider
	success func(w http.ResponseWriter)
}

func newTestOpenAIProvider(t *testing.T, h http.HandlerFunc) Provider {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	config := openai.DefaultConfig("test-key")
	config.BaseURL = server.URL + "/v1"
	return &OpenAIProvider{client: openai.NewClientWithConfig(config), model: "gpt-4o-mini"}
}

func newTestAnthropicProvider(t *testing.T, h http.HandlerFunc) Provider {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	client := anthropic.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(server.URL),
		option.WithMaxRetries(0),
	)
	return &AnthropicProvider{client: &client, model: "claude-haiku-4-5-20251001"}
}

func newTestGeminiProvider(t *testing.T, h http.HandlerFunc) Provider {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: server.URL + "/"},
	})
	if err != nil {
		t.Fatalf("create gemini client: %v", err)
	}
	return &GeminiProvider{client: client, model: "gemini-2.0-flash"}
}

const tutorReply = "Check the sender domain before clicking."

func providerCases() []providerCase {
	return []providerCase{
		{
			name:  "openai",
			build: newTestOpenAIProvider,
			success: func(w http.ResponseWriter) {
				json.NewEncoder(w).Encode(map[string]any{
					"id":      "chatcmpl-test",
					"object":  "chat.completion",
					"created": 1234567890,
					"model":   "gpt-4o-mini",
					"choices": []map[string]any{{
						"index":         0,
						"message":       map[string]any{"role": "assistant", "content": tutorReply},
						"finish_reason": "stop",
					}},
					"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
				})
			},
		},
		{
			name:  "anthropic",
			build: newTestAnthropicProvider,
			success: func(w http.ResponseWriter) {
				json.NewEncoder(w).Encode(map[string]any{
					"id":          "msg_test",
					"type":        "message",
					"role":        "assistant",
					"content":     []map[string]any{{"type": "text", "text": tutorReply}},
					"model":       "claude-haiku-4-5-20251001",
					"stop_reason": "end_turn",
					"usage":       map[string]any{"input_tokens": 40, "output_tokens": 25},
				})
			},
		},
		{
			name:  "gemini",
			build: newTestGeminiProvider,
			success: func(w http.ResponseWriter) {
				json.NewEncoder(w).Encode(map[string]any{
					"candidates": []map[string]any{{
						"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": tutorReply}}},
						"finishReason": "STOP",
					}},
					"usageMetadata": map[string]any{"promptTokenCount": 40, "candidatesTokenCount": 25, "totalTokenCount": 65},
				})
			},
		},
	}
}

func TestProviders_HappyPath(t *testing.T) {
	for _, tc := range providerCases() {
		t.Run(tc.name, func(t *testing.T) {
			var body string
			p := tc.build(t, func(w http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				body = string(b)
				w.Header().Set("Content-Type", "application/json")
				tc.success(w)
			})

			resp, err := p.Generate(context.Background(), UserPrompt("be brief", "What is phishing?", 256))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Content != tutorReply {
				t.Fatalf("Content = %q", resp.Content)
			}
			if resp.Usage.InputTokens != 40 || resp.Usage.OutputTokens != 25 || resp.Usage.TotalTokens != 65 {
				t.Fatalf("unexpected usage: %+v", resp.Usage)
			}
			if resp.StopReason != "end" {
				t.Fatalf("StopReason = %q, want end", resp.StopReason)
			}
			if !strings.Contains(body, "be brief") || !strings.Contains(body, "What is phishing?") {
				t.Fatalf("prompt missing from request body: %s", body)
			}
		})
	}
}

func TestProviders_ErrorMapping(t *testing.T) {
	for _, tc := range providerCases() {
		for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError} {
			t.Run(tc.name+"/"+http.StatusText(status), func(t *testing.T) {
				p := tc.build(t, func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(status)
					json.NewEncoder(w).Encode(map[string]any{
						"type":  "error",
						"error": map[string]any{"type": "api_error", "message": "nope", "code": status},
					})
				})

				_, err := p.Generate(context.Background(), UserPrompt("", "test", 100))
				if err == nil {
					t.Fatal("expected error")
				}
				var rl *ErrRateLimit
				var unavail *ErrProviderUnavailable
				switch status {
				case http.StatusTooManyRequests:
					if !errors.As(err, &rl) {
						t.Fatalf("expected ErrRateLimit, got: %T (%v)", err, err)
					}
				default:
					if !errors.As(err, &unavail) {
						t.Fatalf("expected ErrProviderUnavailable, got: %T (%v)", err, err)
					}
				}
			})
		}
	}
}

func TestOpenAIProvider_EmptyChoices(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": "x", "model": "gpt-4o-mini", "choices": []any{}})
	})
	_, err := p.Generate(context.Background(), UserPrompt("", "test", 10))
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got: %T (%v)", err, err)
	}
}

func TestNewProviders_RequireCredentials(t *testing.T) {
	if _, err := NewAnthropicProvider(AnthropicConfig{}); err == nil {
		t.Error("anthropic: expected error without key")
	}
	if _, err := NewOpenAIProvider(OpenAIConfig{}); err == nil {
		t.Error("openai: expected error without key or base URL")
	}
	if _, err := NewGeminiProvider(context.Background(), GeminiConfig{}); err == nil {
		t.Error("gemini: expected error without key")
	}

	// A local OpenAI-compatible server needs no key.
	p, err := NewOpenAIProvider(OpenAIConfig{Model: "llama3", BaseURL: "http://localhost:11434/v1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "llama3" {
		t.Fatalf("ModelID = %q", p.ModelID())
	}
}

func TestModelMapping(t *testing.T) {
	tests := []struct {
		models   map[string]string
		input    string
		expected string
	}{
		{anthropicModels, "claude-haiku", "claude-haiku-4-5-20251001"},
		{anthropicModels, "claude-sonnet-4-20250514", "claude-sonnet-4-20250514"},
		{openaiModels, "gpt-4o-mini", "gpt-4o-mini"},
		{geminiModels, "gemini-flash", "gemini-2.0-flash"},
		{geminiModels, "gemini-2.5-pro", "gemini-2.5-pro"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.input, tt.models); got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
