package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leoprotocol/leoscore/internal/model"
)

// Outcome records whether a change that took a pathway succeeded.
type Outcome struct {
	ID         string           `json:"id"`
	IssueID    string           `json:"issue_id"`
	Pathway    model.Pathway    `json:"pathway"`
	ChangeType model.ChangeType `json:"change_type"`
	Success    bool             `json:"success"`
	RecordedAt time.Time        `json:"recorded_at"`
}

// RecordOutcome stores o and returns its id. Missing ids and timestamps are filled in.
func (s *Store) RecordOutcome(ctx context.Context, o Outcome) (string, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now()
	}
	success := 0
	if o.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bypass_outcomes (id, issue_id, pathway, change_type, success, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.IssueID, string(o.Pathway), string(o.ChangeType), success, formatTime(o.RecordedAt))
	if err != nil {
		return "", fmt.Errorf("record outcome: %w", err)
	}
	return o.ID, nil
}

// LoadHistoricalStats aggregates outcomes for a pathway and change type.
// An empty change type aggregates across all types. Reads are retried with
// exponential backoff; the last error is returned once retries run out.
func (s *Store) LoadHistoricalStats(ctx context.Context, q model.StatsQuery) (model.HistoricalStats, error) {
	var stats model.HistoricalStats

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.initialInterval
	bo.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(bo, s.retries), ctx)

	err := backoff.RetryNotify(func() error {
		var err error
		stats, err = s.queryStats(ctx, q)
		return err
	}, b, func(err error, wait time.Duration) {
		s.logger.Warn("retrying historical stats read",
			zap.String("pathway", string(q.Pathway)),
			zap.String("change_type", string(q.ChangeType)),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
	if err != nil {
		return model.HistoricalStats{}, fmt.Errorf("load historical stats: %w", err)
	}
	return stats, nil
}

func (s *Store) queryStats(ctx context.Context, q model.StatsQuery) (model.HistoricalStats, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(success), 0) FROM bypass_outcomes WHERE pathway = ?`
	args := []any{string(q.Pathway)}
	if q.ChangeType != "" {
		query += ` AND change_type = ?`
		args = append(args, string(q.ChangeType))
	}

	var total, succeeded int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total, &succeeded); err != nil {
		return model.HistoricalStats{}, err
	}
	if total == 0 {
		return model.HistoricalStats{}, nil
	}
	return model.HistoricalStats{
		SuccessRate: float64(succeeded) / float64(total),
		SampleCount: total,
	}, nil
}
