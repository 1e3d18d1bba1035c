package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// requestSchema describes the standalone grading request read from stdin.
// Fields are optional; absent ones default to empty/zero like the
// surrounding application sends them.
var requestSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"question":    map[string]any{"type": "string"},
		"userAnswers": map[string]any{"type": "array"},
		"blanks":      map[string]any{"type": "integer", "minimum": 0},
		"correctAnswers": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "array"},
		},
	},
}

var compiledRequestSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	// The compiler wants a parsed JSON value, not Go literals.
	b, err := json.Marshal(requestSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var def any
	if err := json.Unmarshal(b, &def); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	const url = "schema://grading-request.json"
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	return c.Compile(url)
})

type wireRequest struct {
	Question       string  `json:"question"`
	UserAnswers    []any   `json:"userAnswers"`
	Blanks         float64 `json:"blanks"`
	CorrectAnswers [][]any `json:"correctAnswers"`
}

// DecodeRequest reads one JSON grading request. Malformed input yields a
// ValidationError with Field "input".
func DecodeRequest(r io.Reader) (Request, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Request{}, &ValidationError{Field: "input", Err: fmt.Errorf("read input: %w", err)}
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Request{}, &ValidationError{Field: "input", Err: errors.New("no input data provided")}
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Request{}, &ValidationError{Field: "input", Err: err}
	}
	schema, err := compiledRequestSchema()
	if err != nil {
		return Request{}, fmt.Errorf("compile request schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return Request{}, &ValidationError{Field: "input", Err: err}
	}

	var w wireRequest
	if err := json.Unmarshal(raw, &w); err != nil {
		return Request{}, &ValidationError{Field: "input", Err: err}
	}

	req := Request{
		Question:       w.Question,
		Blanks:         int(w.Blanks),
		UserAnswers:    make([]string, len(w.UserAnswers)),
		CorrectAnswers: make([][]string, len(w.CorrectAnswers)),
	}
	for i, a := range w.UserAnswers {
		req.UserAnswers[i] = stringify(a)
	}
	for i, set := range w.CorrectAnswers {
		opts := make([]string, 0, len(set))
		for _, o := range set {
			if s, ok := o.(string); ok {
				opts = append(opts, s)
			}
		}
		req.CorrectAnswers[i] = opts
	}
	return req, nil
}

// stringify renders a JSON scalar the way it was typed; null becomes "".
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

type wireBlank struct {
	IsCorrect      bool   `json:"isCorrect"`
	UserAnswer     string `json:"userAnswer"`
	CorrectAnswers string `json:"correctAnswers"`
	Explanation    string `json:"explanation"`
}

type wireResponse struct {
	Blanks  []wireBlank `json:"blanks"`
	Overall string      `json:"overall"`
	Details string      `json:"details,omitempty"`
}

// EncodeOutcome writes a successful outcome as one JSON object.
func EncodeOutcome(w io.Writer, o Outcome) error {
	resp := wireResponse{Blanks: make([]wireBlank, len(o.Blanks)), Overall: string(o.Verdict)}
	for i, b := range o.Blanks {
		resp.Blanks[i] = wireBlank{
			IsCorrect:      b.Correct,
			UserAnswer:     b.UserAnswer,
			CorrectAnswers: strings.Join(b.Accepted, ", "),
			Explanation:    b.Explanation,
		}
	}
	return writeJSON(w, resp)
}

// EncodeError writes the failure object {blanks: [], overall: "Error: ...", details}.
func EncodeError(w io.Writer, err error) error {
	d := Diagnose(err)
	return writeJSON(w, wireResponse{
		Blanks:  []wireBlank{},
		Overall: "Error: " + d.Category,
		Details: d.Details,
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Serve runs one request/response exchange of the standalone grader. It
// returns the process exit status: 0 on success, 1 on any failure.
func Serve(ctx context.Context, g *Grader, in io.Reader, out io.Writer) int {
	req, err := DecodeRequest(in)
	if err == nil {
		var o Outcome
		o, err = g.Grade(ctx, req)
		if err == nil {
			if werr := EncodeOutcome(out, o); werr != nil {
				return 1
			}
			return 0
		}
	}
	_ = EncodeError(out, err)
	return 1
}
