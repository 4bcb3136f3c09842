package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dtplanner/pkg/pipeline"
)

// ErrRunNotFound is returned when a requested run does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run is one persisted planning run.
//
//nolint:govet // struct alignment optimization not critical for this type
type Run struct {
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	ID         string     `json:"id"`
	Company    string     `json:"company"`
	Industry   string     `json:"industry"`
	Status     string     `json:"status"` // running, succeeded, degraded, failed
	Error      string     `json:"error,omitempty"`
	StateJSON  string     `json:"-"` // latest state snapshot
}

// StageEvent records one finished stage of a run.
//
//nolint:govet // struct alignment optimization not critical for this type
type StageEvent struct {
	CreatedAt  time.Time `json:"created_at"`
	RunID      string    `json:"run_id"`
	Stage      string    `json:"stage"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	Attempts   int       `json:"attempts"`
	DurationMS int64     `json:"duration_ms"`
}

// IsTerminal reports whether the run has finished.
func (r *Run) IsTerminal() bool {
	return r.Status != pipeline.StatusRunning
}

// State decodes the latest snapshot.
func (r *Run) State() (*pipeline.State, error) {
	if r.StateJSON == "" {
		return nil, fmt.Errorf("run %s has no state snapshot", r.ID)
	}
	var s pipeline.State
	if err := json.Unmarshal([]byte(r.StateJSON), &s); err != nil {
		return nil, fmt.Errorf("failed to decode state of run %s: %w", r.ID, err)
	}
	return &s, nil
}

// NewStageEvent converts a stage result into its record.
func NewStageEvent(runID string, r pipeline.StageResult, at time.Time) *StageEvent {
	ev := &StageEvent{
		CreatedAt:  at.UTC(),
		RunID:      runID,
		Stage:      r.Stage,
		Outcome:    r.Outcome(),
		Attempts:   r.Attempts,
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		ev.Error = r.Err.Error()
	}
	return ev
}

func encodeState(s *pipeline.State) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode state of run %s: %w", s.RunID, err)
	}
	return string(data), nil
}
