// Package store persists patterns, bypass outcomes and assessments in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/leoprotocol/leoscore/internal/logging"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS patterns (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	status     TEXT NOT NULL,
	body       TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS bypass_outcomes (
	id          TEXT PRIMARY KEY,
	issue_id    TEXT NOT NULL,
	pathway     TEXT NOT NULL,
	change_type TEXT NOT NULL,
	success     INTEGER NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS bypass_outcomes_lookup ON bypass_outcomes (pathway, change_type);
CREATE TABLE IF NOT EXISTS assessments (
	id           TEXT PRIMARY KEY,
	subject_id   TEXT NOT NULL,
	risk_level   TEXT NOT NULL,
	total_impact INTEGER NOT NULL,
	body         TEXT NOT NULL,
	assessed_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS assessments_subject ON assessments (subject_id, assessed_at);
`

// Store is a SQLite-backed repository. Safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *zap.Logger

	retries         uint64
	initialInterval time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for retry notifications.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNop(l) }
}

// WithRetry sets how many times stats reads are retried and the first
// backoff interval.
func WithRetry(retries uint64, initial time.Duration) Option {
	return func(s *Store) {
		s.retries = retries
		s.initialInterval = initial
	}
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: empty database path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:              db,
		logger:          zap.NewNop(),
		retries:         3,
		initialInterval: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", schema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init database: %w", err)
		}
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// timeLayout has fixed-width fractions so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
