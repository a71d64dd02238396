package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/leoprotocol/leoscore/internal/model"
)

// SaveAssessment stores a and returns the generated row id.
func (s *Store) SaveAssessment(ctx context.Context, a model.Assessment) (string, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode assessment: %w", err)
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessments (id, subject_id, risk_level, total_impact, body, assessed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, a.SubjectID, string(a.RiskLevel), a.TotalImpact, string(body), formatTime(a.AssessedAt))
	if err != nil {
		return "", fmt.Errorf("save assessment: %w", err)
	}
	return id, nil
}

// ListAssessments returns the assessments of a subject, newest first.
// A limit of 0 returns all of them.
func (s *Store) ListAssessments(ctx context.Context, subjectID string, limit int) ([]model.Assessment, error) {
	query := `SELECT body FROM assessments WHERE subject_id = ? ORDER BY assessed_at DESC, rowid DESC`
	args := []any{subjectID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer rows.Close()

	var out []model.Assessment
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		var a model.Assessment
		if err := json.Unmarshal([]byte(body), &a); err != nil {
			return nil, fmt.Errorf("decode assessment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
