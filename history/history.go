// Package history persists per-run summaries to a local SQLite database so
// pass rates can be compared across runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/aiventory/invoqa/types"
)

const schema = `CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	total INTEGER NOT NULL,
	passed INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	skipped INTEGER NOT NULL,
	pass_rate REAL NOT NULL,
	total_duration_ms INTEGER NOT NULL
)`

// Entry is one stored run.
type Entry struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    time.Time
	Total         int
	Passed        int
	Failed        int
	Skipped       int
	PassRate      float64
	TotalDuration time.Duration
}

// Store wraps the runs database.
type Store struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// Open opens (creating if needed) the history database at path.
func Open(path string, log logrus.FieldLogger) (*Store, error) {
	if log == nil {
		log = logrus.New()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=10000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history migration: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records the summary of a finished run. Saving the same run id twice
// overwrites the earlier row.
func (s *Store) Save(ctx context.Context, runID string, summary types.RunSummary) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs
		(run_id, started_at, finished_at, total, passed, failed, skipped, pass_rate, total_duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			started_at=excluded.started_at, finished_at=excluded.finished_at,
			total=excluded.total, passed=excluded.passed, failed=excluded.failed,
			skipped=excluded.skipped, pass_rate=excluded.pass_rate,
			total_duration_ms=excluded.total_duration_ms`,
		runID,
		summary.StartTime.UTC(),
		summary.EndTime.UTC(),
		summary.TotalChecks,
		summary.Passed,
		summary.Failed,
		summary.Skipped,
		summary.PassRate,
		summary.TotalDuration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", runID, err)
	}
	s.log.WithField("run_id", runID).Debug("run saved to history")
	return nil
}

// Recent returns the n most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 10
	}

	rows, err := s.db.QueryContext(ctx, `SELECT
		run_id, started_at, finished_at, total, passed, failed, skipped, pass_rate, total_duration_ms
		FROM runs ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var durationMS int64
		if err := rows.Scan(&e.RunID, &e.StartedAt, &e.FinishedAt,
			&e.Total, &e.Passed, &e.Failed, &e.Skipped, &e.PassRate, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.TotalDuration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
