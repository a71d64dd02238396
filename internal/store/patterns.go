package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/leoprotocol/leoscore/internal/model"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const upsertPattern = `
	INSERT INTO patterns (id, status, body, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		body = excluded.body,
		updated_at = excluded.updated_at`

// UpsertPattern inserts p or replaces the stored pattern with the same id.
// A replaced pattern keeps its original position.
func (s *Store) UpsertPattern(ctx context.Context, p model.Pattern) error {
	return upsert(ctx, s.db, p, formatTime(time.Now()))
}

func upsert(ctx context.Context, db execer, p model.Pattern, now string) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pattern %s: %w", p.ID, err)
	}
	if _, err := db.ExecContext(ctx, upsertPattern, p.ID, string(p.Status), string(body), now); err != nil {
		return fmt.Errorf("upsert pattern %s: %w", p.ID, err)
	}
	return nil
}

// UpdatePatterns runs update against the stored patterns inside one
// transaction and upserts the patterns it returns. When update returns an
// error nothing is written.
func (s *Store) UpdatePatterns(ctx context.Context, update func(stored []model.Pattern) ([]model.Pattern, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	stored, err := loadPatterns(ctx, tx)
	if err != nil {
		return err
	}
	changed, err := update(stored)
	if err != nil {
		return err
	}

	now := formatTime(time.Now())
	for _, p := range changed {
		if err := upsert(ctx, tx, p, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ImportPatterns upserts every pattern in one transaction.
func (s *Store) ImportPatterns(ctx context.Context, patterns []model.Pattern) error {
	return s.UpdatePatterns(ctx, func([]model.Pattern) ([]model.Pattern, error) {
		return patterns, nil
	})
}

// LoadPatterns returns every stored pattern, whatever its status, in
// insertion order. Callers filter and validate through the catalog.
func (s *Store) LoadPatterns(ctx context.Context) ([]model.Pattern, error) {
	return loadPatterns(ctx, s.db)
}

func loadPatterns(ctx context.Context, db queryer) ([]model.Pattern, error) {
	rows, err := db.QueryContext(ctx, `SELECT body FROM patterns ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query patterns: %w", err)
	}
	defer rows.Close()

	var out []model.Pattern
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		var p model.Pattern
		if err := json.Unmarshal([]byte(body), &p); err != nil {
			return nil, fmt.Errorf("decode pattern: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patterns: %w", err)
	}
	return out, nil
}

// GetPattern returns one stored pattern by id.
func (s *Store) GetPattern(ctx context.Context, id string) (model.Pattern, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM patterns WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Pattern{}, fmt.Errorf("pattern %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Pattern{}, fmt.Errorf("query pattern %s: %w", id, err)
	}
	var p model.Pattern
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return model.Pattern{}, fmt.Errorf("decode pattern %s: %w", id, err)
	}
	return p, nil
}

// SetPatternStatus changes the lifecycle status of a stored pattern.
func (s *Store) SetPatternStatus(ctx context.Context, id string, status model.Status) error {
	return s.UpdatePatterns(ctx, func(stored []model.Pattern) ([]model.Pattern, error) {
		p, err := WithStatus(stored, id, status)
		if err != nil {
			return nil, err
		}
		return []model.Pattern{p}, nil
	})
}

// WithStatus returns the pattern with the given id from stored, with its
// status replaced. Returns ErrNotFound if no such pattern exists.
func WithStatus(stored []model.Pattern, id string, status model.Status) (model.Pattern, error) {
	for _, p := range stored {
		if p.ID == id {
			p.Status = status
			return p, nil
		}
	}
	return model.Pattern{}, fmt.Errorf("pattern %s: %w", id, ErrNotFound)
}

// Merge returns stored with changes applied the way an upsert would:
// replaced patterns keep their position, new ones are appended.
func Merge(stored, changes []model.Pattern) []model.Pattern {
	out := make([]model.Pattern, len(stored), len(stored)+len(changes))
	copy(out, stored)
	index := make(map[string]int, len(out))
	for i, p := range out {
		index[p.ID] = i
	}
	for _, p := range changes {
		if i, ok := index[p.ID]; ok {
			out[i] = p
			continue
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	return out
}
