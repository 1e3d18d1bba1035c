package questionbank

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"
)

//go:embed data/questions.json
var defaultBank []byte

// SupportedMajor is the bank format major version this build reads.
const SupportedMajor = "v1"

var questionSchema = map[string]any{
	"type":     "object",
	"required": []any{"id", "question", "difficulty"},
	"properties": map[string]any{
		"id":          map[string]any{"type": "string", "minLength": 1},
		"question":    map[string]any{"type": "string", "minLength": 1},
		"difficulty":  map[string]any{"type": "integer", "minimum": MinDifficulty, "maximum": MaxDifficulty},
		"topic":       map[string]any{"type": "string"},
		"explanation": map[string]any{"type": "string"},
	},
	"oneOf": []any{
		map[string]any{
			"required": []any{"options", "correct_answer"},
			"properties": map[string]any{
				"options":        map[string]any{"type": "array", "minItems": 2, "items": map[string]any{"type": "string"}},
				"correct_answer": map[string]any{"type": "integer", "minimum": 0},
			},
		},
		map[string]any{
			"required": []any{"blanks", "accepted"},
			"properties": map[string]any{
				"blanks": map[string]any{"type": "integer", "minimum": 1},
				"accepted": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items":    map[string]any{"type": "string"},
					},
				},
			},
		},
	},
}

var bankSchema = map[string]any{
	"type":     "object",
	"required": []any{"version", "categories"},
	"properties": map[string]any{
		"version": map[string]any{"type": "string"},
		"categories": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "name", "questions"},
				"properties": map[string]any{
					"id":          map[string]any{"type": "string", "minLength": 1},
					"name":        map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"syllabus":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"questions":   map[string]any{"type": "array", "items": questionSchema},
				},
			},
		},
	},
}

var compiledBankSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	b, err := json.Marshal(bankSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	def, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	const url = "schema://question-bank.json"
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	return c.Compile(url)
})

type bankFile struct {
	Version    string      `json:"version"`
	Categories []*Category `json:"categories"`
}

// Default returns the bank compiled into the binary.
func Default() (*Bank, error) {
	b, err := Load(bytes.NewReader(defaultBank))
	if err != nil {
		return nil, fmt.Errorf("default question bank: %w", err)
	}
	return b, nil
}

// LoadFile reads and validates a bank from path.
func LoadFile(path string) (*Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open question bank: %w", err)
	}
	defer f.Close()
	b, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Load parses a bank from r and validates it structurally and semantically.
func Load(r io.Reader) (*Bank, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	schema, err := compiledBankSchema()
	if err != nil {
		return nil, fmt.Errorf("compile bank schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid question bank: %w", err)
	}

	var f bankFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}

	version, err := checkVersion(f.Version)
	if err != nil {
		return nil, err
	}
	if err := validateBank(f.Categories); err != nil {
		return nil, err
	}

	b := &Bank{
		version:    version,
		categories: f.Categories,
		byID:       make(map[string]*Category, len(f.Categories)),
		questions:  make(map[string]*Question),
	}
	for _, c := range f.Categories {
		b.byID[c.ID] = c
		for _, q := range c.Questions {
			b.questions[q.ID] = q
		}
	}
	return b, nil
}

func checkVersion(v string) (string, error) {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("question bank version %q is not a semantic version", v)
	}
	if semver.Major(v) != SupportedMajor {
		return "", fmt.Errorf("question bank version %s is not supported (want %s.x)", v, SupportedMajor)
	}
	return v, nil
}

// validateBank performs the checks the schema cannot express. Returns a
// combined error describing all problems found, or nil if valid.
func validateBank(cats []*Category) error {
	var errs []string

	catIDs := make(map[string]bool, len(cats))
	qIDs := make(map[string]string)
	for _, c := range cats {
		if catIDs[c.ID] {
			errs = append(errs, fmt.Sprintf("duplicate category ID: %q", c.ID))
		}
		catIDs[c.ID] = true

		for _, q := range c.Questions {
			if owner, ok := qIDs[q.ID]; ok {
				errs = append(errs, fmt.Sprintf("duplicate question ID %q in %q (first in %q)", q.ID, c.ID, owner))
			} else {
				qIDs[q.ID] = c.ID
			}

			switch q.Kind() {
			case KindMultipleChoice:
				if q.CorrectIdx == nil || *q.CorrectIdx >= len(q.Options) {
					errs = append(errs, fmt.Sprintf("question %q: correct_answer out of range for %d options", q.ID, len(q.Options)))
				}
			case KindFillBlank:
				if len(q.Accepted) != q.BlankCount {
					errs = append(errs, fmt.Sprintf("question %q: %d accepted sets for %d blanks", q.ID, len(q.Accepted), q.BlankCount))
				}
			}
		}
	}

	if len(errs) > 0 {
		return errors.New("question bank validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
