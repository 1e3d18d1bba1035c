package notes

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/abhisek/cyberguard/internal/llm"
	"github.com/abhisek/cyberguard/internal/questionbank"
	"github.com/abhisek/cyberguard/internal/store"
)

func defaultBank(t *testing.T) *questionbank.Bank {
	t.Helper()
	b, err := questionbank.Default()
	if err != nil {
		t.Fatalf("default bank: %v", err)
	}
	return b
}

func mockOracle(responses ...llm.MockResponse) (*llm.MockProvider, llm.Oracle) {
	p := llm.NewMockProvider(responses...)
	return p, llm.NewOracle(p, llm.DefaultConfig())
}

type memNotes struct {
	mu   sync.Mutex
	data map[string]store.Notes
}

func (m *memNotes) GetNotes(_ context.Context, id string) (*store.Notes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.data[id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (m *memNotes) PutNotes(_ context.Context, n *store.Notes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]store.Notes{}
	}
	m.data[n.ModuleID] = *n
	return nil
}

func TestNotesPromptAndCache(t *testing.T) {
	p, o := mockOracle(llm.MockResponse{Content: "<h1>Module Syllabus</h1>"})
	svc := NewService(defaultBank(t), o, nil, nil)
	ctx := context.Background()

	got, err := svc.Notes(ctx, "advanced-phishing")
	if err != nil {
		t.Fatalf("notes: %v", err)
	}
	if got != "<h1>Module Syllabus</h1>" {
		t.Fatalf("notes = %q", got)
	}

	prompt := p.LastPrompt()
	for _, want := range []string{`"Advanced Phishing"`, "- Technical defenses: SPF, DKIM, and DMARC", "<h1>Key Takeaways</h1>"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	// Cached: no second call.
	if again, _ := svc.Notes(ctx, "advanced-phishing"); again != got {
		t.Fatalf("cached notes = %q", again)
	}
	if p.CallCount() != 1 {
		t.Fatalf("calls = %d, want 1", p.CallCount())
	}
}

func TestNotesFallbackNotCached(t *testing.T) {
	p, o := mockOracle(
		llm.MockResponse{Err: errors.New("quota")},
		llm.MockResponse{Content: "<h1>ok</h1>"},
	)
	svc := NewService(defaultBank(t), o, nil, nil)
	ctx := context.Background()

	got, err := svc.Notes(ctx, "email-security")
	if err != nil || got != Fallback {
		t.Fatalf("first = %q, %v; want fallback", got, err)
	}
	got, err = svc.Notes(ctx, "email-security")
	if err != nil || got != "<h1>ok</h1>" {
		t.Fatalf("second = %q, %v", got, err)
	}
	if p.CallCount() != 2 {
		t.Fatalf("calls = %d, want 2", p.CallCount())
	}
}

func TestNotesUnavailableOracle(t *testing.T) {
	svc := NewService(defaultBank(t), llm.Unavailable(errors.New("off")), &memNotes{}, nil)
	got, err := svc.Notes(context.Background(), "basic-phishing")
	if err != nil || got != Fallback {
		t.Fatalf("notes = %q, %v", got, err)
	}
}

func TestNotesUnknownModule(t *testing.T) {
	_, o := mockOracle()
	svc := NewService(defaultBank(t), o, nil, nil)
	if _, err := svc.Notes(context.Background(), "nope"); !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("err = %v", err)
	}
}

func TestNotesPersistAcrossRestarts(t *testing.T) {
	s, err := store.Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()
	bank := defaultBank(t)

	_, o := mockOracle(llm.MockResponse{Content: "```html\n<h1>Stored</h1>\n```"})
	if got, _ := NewService(bank, o, s.NotesRepo(), nil).Notes(ctx, "social-engineering"); got != "<h1>Stored</h1>" {
		t.Fatalf("first service = %q", got)
	}

	stored, err := s.NotesRepo().GetNotes(ctx, "social-engineering")
	if err != nil || stored == nil || stored.Model != "mock" {
		t.Fatalf("stored = %+v, %v", stored, err)
	}

	// A fresh service reads the stored copy without generating.
	p2, o2 := mockOracle()
	if got, _ := NewService(bank, o2, s.NotesRepo(), nil).Notes(ctx, "social-engineering"); got != "<h1>Stored</h1>" {
		t.Fatalf("second service = %q", got)
	}
	if p2.CallCount() != 0 {
		t.Fatalf("second service generated %d times", p2.CallCount())
	}
}

func TestWarm(t *testing.T) {
	bank := defaultBank(t)
	var responses []llm.MockResponse
	for range bank.Categories() {
		responses = append(responses, llm.MockResponse{Content: "<h1>notes</h1>"})
	}
	p, o := mockOracle(responses...)
	repo := &memNotes{}
	svc := NewService(bank, o, repo, nil)

	var ids []string
	for _, c := range bank.Categories() {
		ids = append(ids, c.ID)
	}
	if err := svc.Warm(context.Background(), ids); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if p.CallCount() != len(ids) {
		t.Fatalf("calls = %d, want %d", p.CallCount(), len(ids))
	}
	if len(repo.data) != len(ids) {
		t.Fatalf("persisted %d notes, want %d", len(repo.data), len(ids))
	}

	if err := svc.Warm(context.Background(), []string{"nope"}); !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("warm unknown = %v", err)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct{ in, want string }{
		{"<h1>x</h1>", "<h1>x</h1>"},
		{"```html\n<h1>x</h1>\n```", "<h1>x</h1>"},
		{"```\n<p>y</p>```", "<p>y</p>"},
		{"  \n```html\n<b>z</b>\n``` ", "<b>z</b>"},
		{"```", ""},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
