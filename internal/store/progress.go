package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const tableProgress = "progress"

var progressColumns = []string{
	"learner_id", "module_id", "level", "at_level", "total", "correct",
	"streak", "points", "outstanding", "recent", "updated_at", "version",
}

// progressRepo implements ProgressRepo on SQLite.
type progressRepo struct {
	db *sql.DB
}

func (r *progressRepo) Get(ctx context.Context, learnerID, moduleID string) (*ProgressRecord, error) {
	q, args := entsql.Dialect(dialect.SQLite).
		Select(progressColumns...).
		From(entsql.Table(tableProgress)).
		Where(entsql.And(
			entsql.EQ("learner_id", learnerID),
			entsql.EQ("module_id", moduleID),
		)).
		Query()

	rec, err := scanProgress(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress %s/%s: %w", learnerID, moduleID, err)
	}
	return rec, nil
}

func (r *progressRepo) Put(ctx context.Context, rec *ProgressRecord) error {
	recent, err := json.Marshal(nonNil(rec.Recent))
	if err != nil {
		return fmt.Errorf("encode recent questions: %w", err)
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	var (
		q    string
		args []any
	)
	if rec.Version == 0 {
		q, args = entsql.Dialect(dialect.SQLite).
			Insert(tableProgress).
			Columns(progressColumns...).
			Values(rec.LearnerID, rec.ModuleID, rec.Level, rec.AtLevel, rec.Total, rec.Correct,
				rec.Streak, rec.Points, rec.Outstanding, string(recent), toMillis(updated), 1).
			OnConflict(
				entsql.ConflictColumns("learner_id", "module_id"),
				entsql.DoNothing(),
			).
			Query()
	} else {
		q, args = entsql.Dialect(dialect.SQLite).
			Update(tableProgress).
			Set("level", rec.Level).
			Set("at_level", rec.AtLevel).
			Set("total", rec.Total).
			Set("correct", rec.Correct).
			Set("streak", rec.Streak).
			Set("points", rec.Points).
			Set("outstanding", rec.Outstanding).
			Set("recent", string(recent)).
			Set("updated_at", toMillis(updated)).
			Set("version", rec.Version+1).
			Where(entsql.And(
				entsql.EQ("learner_id", rec.LearnerID),
				entsql.EQ("module_id", rec.ModuleID),
				entsql.EQ("version", rec.Version),
			)).
			Query()
	}

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("put progress %s/%s: %w", rec.LearnerID, rec.ModuleID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("put progress %s/%s: %w", rec.LearnerID, rec.ModuleID, err)
	}
	if n == 0 {
		return fmt.Errorf("put progress %s/%s at version %d: %w", rec.LearnerID, rec.ModuleID, rec.Version, ErrConflict)
	}
	rec.Version++
	return nil
}

func (r *progressRepo) List(ctx context.Context, learnerID string) ([]ProgressRecord, error) {
	q, args := entsql.Dialect(dialect.SQLite).
		Select(progressColumns...).
		From(entsql.Table(tableProgress)).
		Where(entsql.EQ("learner_id", learnerID)).
		OrderBy("module_id").
		Query()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list progress %s: %w", learnerID, err)
	}
	defer rows.Close()

	var out []ProgressRecord
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("list progress %s: %w", learnerID, err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *progressRepo) Delete(ctx context.Context, learnerID string) (int, error) {
	q, args := entsql.Dialect(dialect.SQLite).
		Delete(tableProgress).
		Where(entsql.EQ("learner_id", learnerID)).
		Query()

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("delete progress %s: %w", learnerID, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanProgress(s scanner) (*ProgressRecord, error) {
	var (
		rec     ProgressRecord
		recent  string
		updated int64
	)
	err := s.Scan(&rec.LearnerID, &rec.ModuleID, &rec.Level, &rec.AtLevel, &rec.Total, &rec.Correct,
		&rec.Streak, &rec.Points, &rec.Outstanding, &recent, &updated, &rec.Version)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(recent), &rec.Recent); err != nil {
		return nil, fmt.Errorf("decode recent questions: %w", err)
	}
	rec.UpdatedAt = fromMillis(updated)
	return &rec, nil
}
