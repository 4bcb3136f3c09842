package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"dtplanner/pkg/logx"
)

// SQLiteStore keeps runs in a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *logx.Logger
}

// OpenSQLite opens (creating if needed) the database at path and brings the
// schema up to date. ":memory:" is accepted for tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; an in-memory database also lives on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := initializeSchemaWithMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger := logx.NewLogger("persistence")
	logger.Info("database initialized: %s", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// CreateRun inserts a new run record.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, company, industry, status, state_json, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Company, run.Industry, run.Status, run.StateJSON, formatTime(run.StartedAt))
	if err != nil {
		return fmt.Errorf("failed to create run %s: %w", run.ID, err)
	}
	return nil
}

// SaveSnapshot replaces the state snapshot of a run.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, runID, stateJSON string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE runs SET state_json = ? WHERE id = ?`, stateJSON, runID)
	if err != nil {
		return fmt.Errorf("failed to save snapshot of run %s: %w", runID, err)
	}
	return expectOneRow(result, runID)
}

// FinishRun records the final status of a run.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID, status, errMsg string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?
	`, status, errMsg, formatTime(at), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	return expectOneRow(result, runID)
}

func expectOneRow(result sql.Result, runID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// AppendStageEvent adds one stage record.
func (s *SQLiteStore) AppendStageEvent(ctx context.Context, ev *StageEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stage_events (run_id, stage, outcome, attempts, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.RunID, ev.Stage, ev.Outcome, ev.Attempts, ev.DurationMS, ev.Error, formatTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append %s event for run %s: %w", ev.Stage, ev.RunID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner, withState bool) (*Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
	)
	dest := []any{&run.ID, &run.Company, &run.Industry, &run.Status, &run.Error, &startedAt, &finishedAt}
	if withState {
		dest = append(dest, &run.StateJSON)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err //nolint:wrapcheck // callers add context
	}

	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if finishedAt.Valid && finishedAt.String != "" {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return nil, err
		}
		run.FinishedAt = &t
	}
	return &run, nil
}

// GetRun returns a run including its snapshot.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, company, industry, status, error, started_at, finished_at, state_json
		FROM runs WHERE id = ?
	`, runID)
	run, err := scanRun(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company, industry, status, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id LIMIT ?
	`, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// StageEvents returns the stage history of a run.
func (s *SQLiteStore) StageEvents(ctx context.Context, runID string) ([]*StageEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, stage, outcome, attempts, duration_ms, error, created_at
		FROM stage_events WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stage events for run %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var events []*StageEvent
	for rows.Next() {
		var (
			ev        StageEvent
			createdAt string
		)
		if err := rows.Scan(&ev.RunID, &ev.Stage, &ev.Outcome, &ev.Attempts, &ev.DurationMS, &ev.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan stage event: %w", err)
		}
		if ev.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stage events: %w", err)
	}
	return events, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
