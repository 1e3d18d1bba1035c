package store

import (
	"context"
	"errors"
	"time"
)

// ErrConflict is returned by ProgressRepo.Put when the record was written
// by someone else since it was read.
var ErrConflict = errors.New("progress record changed concurrently")

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int    // max results (0 = unlimited)
	After   int64  // sequence > After
	Learner string // grading events only; empty = all learners
	Purpose string // LLM events only; empty = all purposes
}

// ProgressRecord is one learner's persisted state for one module. The store
// is domain-ignorant; progression converts to and from it.
type ProgressRecord struct {
	LearnerID   string
	ModuleID    string
	Level       int
	AtLevel     int
	Total       int
	Correct     int
	Streak      int
	Points      int
	Outstanding string
	Recent      []string
	UpdatedAt   time.Time
	// Version counts writes. Stored records start at 1; zero means the
	// record has never been stored.
	Version int64
}

// ProgressRepo persists progression state keyed by (learner, module).
type ProgressRepo interface {
	// Get returns the record, or nil when the learner has never been seen
	// in this module.
	Get(ctx context.Context, learnerID, moduleID string) (*ProgressRecord, error)

	// Put writes rec only if the stored version still equals rec.Version
	// (zero inserts a new record) and then advances rec.Version. Otherwise
	// it returns an error wrapping ErrConflict and stores nothing.
	Put(ctx context.Context, rec *ProgressRecord) error

	// List returns every module record for a learner ordered by module id.
	List(ctx context.Context, learnerID string) ([]ProgressRecord, error)

	// Delete removes all of a learner's records and reports how many went.
	Delete(ctx context.Context, learnerID string) (int, error)
}

// GradingEventData captures one graded turn.
type GradingEventData struct {
	LearnerID     string
	ModuleID      string
	QuestionID    string
	Verdict       string
	Correct       bool
	LevelBefore   int
	LevelAfter    int
	PointsAwarded int
	Answers       []string
	Similarities  []float64
}

// GradingEvent is a persisted GradingEventData.
type GradingEvent struct {
	ID        string
	Sequence  int64
	Timestamp time.Time
	GradingEventData
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a persisted LLMRequestEventData.
type LLMEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// PurposeUsage aggregates LLM token usage for one purpose.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to domain events.
type EventRepo interface {
	// AppendGradingEvent records a graded turn and returns its id.
	AppendGradingEvent(ctx context.Context, data GradingEventData) (string, error)

	// QueryGradingEvents returns grading events newest first.
	QueryGradingEvents(ctx context.Context, opts QueryOpts) ([]GradingEvent, error)

	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns LLM events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns one LLM event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)

	// LLMUsageByPurpose aggregates token usage per purpose.
	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)
}

// Notes is a generated study guide for one module.
type Notes struct {
	ModuleID  string
	Content   string
	Model     string
	CreatedAt time.Time
}

// NotesRepo persists generated module notes.
type NotesRepo interface {
	// GetNotes returns the notes, or nil when none were generated yet.
	GetNotes(ctx context.Context, moduleID string) (*Notes, error)

	// PutNotes inserts or replaces the notes for a module.
	PutNotes(ctx context.Context, n *Notes) error
}
