package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const tableModuleNotes = "module_notes"

type notesRepo struct {
	db *sql.DB
}

func (r *notesRepo) GetNotes(ctx context.Context, moduleID string) (*Notes, error) {
	q, args := entsql.Dialect(dialect.SQLite).
		Select("module_id", "content", "model", "created_at").
		From(entsql.Table(tableModuleNotes)).
		Where(entsql.EQ("module_id", moduleID)).
		Query()

	var (
		n       Notes
		created int64
	)
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&n.ModuleID, &n.Content, &n.Model, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notes %s: %w", moduleID, err)
	}
	n.CreatedAt = fromMillis(created)
	return &n, nil
}

func (r *notesRepo) PutNotes(ctx context.Context, n *Notes) error {
	created := n.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	q, args := entsql.Dialect(dialect.SQLite).
		Insert(tableModuleNotes).
		Columns("module_id", "content", "model", "created_at").
		Values(n.ModuleID, n.Content, n.Model, toMillis(created)).
		OnConflict(
			entsql.ConflictColumns("module_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("put notes %s: %w", n.ModuleID, err)
	}
	return nil
}
