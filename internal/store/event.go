package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

const (
	tableGradingEvents = "grading_events"
	tableLLMEvents     = "llm_events"
)

// sequenceCounter manages the global monotonic sequence number shared by
// grading and LLM events, so the two tables can be merged into one timeline.
// The mutex serializes within the process; the RETURNING clause makes the
// increment atomic at the database level.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

// newSequenceCounter creates a counter and ensures the tracking table exists.
func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{db: db}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := sc.db.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// eventRepo implements EventRepo with the ent SQL builder over database/sql.
type eventRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

var gradingColumns = []string{
	"id", "sequence", "timestamp", "learner_id", "module_id", "question_id",
	"verdict", "correct", "level_before", "level_after", "points_awarded",
	"answers", "similarities",
}

func (r *eventRepo) AppendGradingEvent(ctx context.Context, data GradingEventData) (string, error) {
	answers, err := json.Marshal(nonNil(data.Answers))
	if err != nil {
		return "", fmt.Errorf("encode answers: %w", err)
	}
	sims, err := json.Marshal(nonNil(data.Similarities))
	if err != nil {
		return "", fmt.Errorf("encode similarities: %w", err)
	}

	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return "", fmt.Errorf("next sequence: %w", err)
	}

	id := uuid.NewString()
	q, args := entsql.Dialect(dialect.SQLite).
		Insert(tableGradingEvents).
		Columns(gradingColumns...).
		Values(id, seqNum, toMillis(time.Now()), data.LearnerID, data.ModuleID, data.QuestionID,
			data.Verdict, data.Correct, data.LevelBefore, data.LevelAfter, data.PointsAwarded,
			string(answers), string(sims)).
		Query()
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return "", fmt.Errorf("save grading event: %w", err)
	}
	return id, nil
}

func (r *eventRepo) QueryGradingEvents(ctx context.Context, opts QueryOpts) ([]GradingEvent, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select(gradingColumns...).
		From(entsql.Table(tableGradingEvents))

	var preds []*entsql.Predicate
	if opts.Learner != "" {
		preds = append(preds, entsql.EQ("learner_id", opts.Learner))
	}
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	applyQueryOpts(sel, preds, opts)

	q, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query grading events: %w", err)
	}
	defer rows.Close()

	var out []GradingEvent
	for rows.Next() {
		var (
			e             GradingEvent
			ts            int64
			answers, sims string
		)
		if err := rows.Scan(&e.ID, &e.Sequence, &ts, &e.LearnerID, &e.ModuleID, &e.QuestionID,
			&e.Verdict, &e.Correct, &e.LevelBefore, &e.LevelAfter, &e.PointsAwarded,
			&answers, &sims); err != nil {
			return nil, fmt.Errorf("scan grading event: %w", err)
		}
		e.Timestamp = fromMillis(ts)
		if err := json.Unmarshal([]byte(answers), &e.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of %s: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(sims), &e.Similarities); err != nil {
			return nil, fmt.Errorf("decode similarities of %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var llmColumns = []string{
	"id", "sequence", "timestamp", "provider", "model", "purpose",
	"input_tokens", "output_tokens", "latency_ms", "success", "error_message",
	"request_body", "response_body",
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	q, args := entsql.Dialect(dialect.SQLite).
		Insert(tableLLMEvents).
		Columns(llmColumns[1:]...).
		Values(seqNum, toMillis(time.Now()), data.Provider, data.Model, data.Purpose,
			data.InputTokens, data.OutputTokens, data.LatencyMs, data.Success, data.ErrorMessage,
			data.RequestBody, data.ResponseBody).
		Query()
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select(llmColumns...).
		From(entsql.Table(tableLLMEvents))

	var preds []*entsql.Predicate
	if opts.Purpose != "" {
		preds = append(preds, entsql.EQ("purpose", opts.Purpose))
	}
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	applyQueryOpts(sel, preds, opts)

	q, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	defer rows.Close()

	var out []LLMEvent
	for rows.Next() {
		e, err := scanLLMEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error) {
	q, args := entsql.Dialect(dialect.SQLite).
		Select(llmColumns...).
		From(entsql.Table(tableLLMEvents)).
		Where(entsql.EQ("id", id)).
		Query()

	e, err := scanLLMEvent(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error) {
	q, args := entsql.Dialect(dialect.SQLite).
		Select(
			"purpose",
			entsql.Count("*"),
			entsql.Sum("input_tokens"),
			entsql.Sum("output_tokens"),
			entsql.Avg("latency_ms"),
		).
		From(entsql.Table(tableLLMEvents)).
		GroupBy("purpose").
		OrderBy("purpose").
		Query()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM usage: %w", err)
	}
	defer rows.Close()

	var out []PurposeUsage
	for rows.Next() {
		var (
			u   PurposeUsage
			avg float64
		)
		if err := rows.Scan(&u.Purpose, &u.Calls, &u.InputTokens, &u.OutputTokens, &avg); err != nil {
			return nil, fmt.Errorf("scan LLM usage: %w", err)
		}
		u.AvgLatencyMs = int64(avg)
		out = append(out, u)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLLMEvent(s scanner) (*LLMEvent, error) {
	var (
		e  LLMEvent
		ts int64
	)
	err := s.Scan(&e.ID, &e.Sequence, &ts, &e.Provider, &e.Model, &e.Purpose,
		&e.InputTokens, &e.OutputTokens, &e.LatencyMs, &e.Success, &e.ErrorMessage,
		&e.RequestBody, &e.ResponseBody)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan LLM event: %w", err)
	}
	e.Timestamp = fromMillis(ts)
	return &e, nil
}

// applyQueryOpts adds the shared filter, newest-first order and limit.
func applyQueryOpts(sel *entsql.Selector, preds []*entsql.Predicate, opts QueryOpts) {
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// nonNil keeps empty slices encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
