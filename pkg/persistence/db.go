// Package persistence stores planning runs, their stage history and state
// snapshots in SQLite or PostgreSQL.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dtplanner/pkg/config"
)

// ErrDisabled is returned by Open when storage is turned off.
var ErrDisabled = errors.New("storage is disabled")

// Store is the run repository.
type Store interface {
	// CreateRun inserts a new run in the running state.
	CreateRun(ctx context.Context, run *Run) error
	// SaveSnapshot replaces the state snapshot of a run.
	SaveSnapshot(ctx context.Context, runID, stateJSON string) error
	// FinishRun records the final status of a run.
	FinishRun(ctx context.Context, runID, status, errMsg string, at time.Time) error
	// AppendStageEvent adds one stage record.
	AppendStageEvent(ctx context.Context, ev *StageEvent) error
	// GetRun returns a run including its snapshot, or ErrRunNotFound.
	GetRun(ctx context.Context, runID string) (*Run, error)
	// ListRuns returns the most recent runs first, without snapshots.
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	// StageEvents returns the stage history of a run in insertion order.
	StageEvents(ctx context.Context, runID string) ([]*StageEvent, error)
	Close() error
}

// DefaultListLimit caps ListRuns when the caller passes no limit.
const DefaultListLimit = 50

// Open connects the configured store.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case config.StorageSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return OpenSQLite(cfg.Path)
	case config.StoragePostgres:
		return OpenPostgres(ctx, cfg.DSN)
	case config.StorageNone, "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
