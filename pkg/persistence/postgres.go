package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dtplanner/pkg/logx"
)

// PostgresStore keeps runs in PostgreSQL. Snapshots are stored as JSONB.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *logx.Logger
}

// OpenPostgres connects to dsn and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres storage requires storage.dsn")
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewPostgresStore(ctx, pool)
}

// NewPostgresStore wraps an existing pool and applies the schema.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	for _, ddl := range postgresSchema {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return &PostgresStore{pool: pool, logger: logx.NewLogger("persistence")}, nil
}

// nullableJSON maps an empty snapshot to SQL NULL; JSONB rejects "".
func nullableJSON(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// CreateRun inserts a new run record.
func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO runs (id, company, industry, status, state_json, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.Company, run.Industry, run.Status, nullableJSON(run.StateJSON), run.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create run %s: %w", run.ID, err)
	}
	return nil
}

// SaveSnapshot replaces the state snapshot of a run.
func (s *PostgresStore) SaveSnapshot(ctx context.Context, runID, stateJSON string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE runs SET state_json = $1 WHERE id = $2`, nullableJSON(stateJSON), runID)
	if err != nil {
		return fmt.Errorf("failed to save snapshot of run %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// FinishRun records the final status of a run.
func (s *PostgresStore) FinishRun(ctx context.Context, runID, status, errMsg string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE runs SET status = $1, error = $2, finished_at = $3 WHERE id = $4
	`, status, errMsg, at.UTC(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// AppendStageEvent adds one stage record.
func (s *PostgresStore) AppendStageEvent(ctx context.Context, ev *StageEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO stage_events (run_id, stage, outcome, attempts, duration_ms, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ev.RunID, ev.Stage, ev.Outcome, ev.Attempts, ev.DurationMS, ev.Error, ev.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to append %s event for run %s: %w", ev.Stage, ev.RunID, err)
	}
	return nil
}

// GetRun returns a run including its snapshot.
func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var (
		run   Run
		state *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, company, industry, status, error, started_at, finished_at, state_json::text
		FROM runs WHERE id = $1
	`, runID).Scan(&run.ID, &run.Company, &run.Industry, &run.Status, &run.Error, &run.StartedAt, &run.FinishedAt, &state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	if state != nil {
		run.StateJSON = *state
	}
	return &run, nil
}

// ListRuns returns the most recent runs first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company, industry, status, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id LIMIT $1
	`, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Company, &run.Industry, &run.Status, &run.Error, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// StageEvents returns the stage history of a run.
func (s *PostgresStore) StageEvents(ctx context.Context, runID string) ([]*StageEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, stage, outcome, attempts, duration_ms, error, created_at
		FROM stage_events WHERE run_id = $1 ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stage events for run %s: %w", runID, err)
	}
	defer rows.Close()

	var events []*StageEvent
	for rows.Next() {
		var ev StageEvent
		if err := rows.Scan(&ev.RunID, &ev.Stage, &ev.Outcome, &ev.Attempts, &ev.DurationMS, &ev.Error, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stage event: %w", err)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stage events: %w", err)
	}
	return events, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
