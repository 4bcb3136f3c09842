package persistence

import (
	"context"
	"sync"
	"time"

	"dtplanner/pkg/logx"
	"dtplanner/pkg/pipeline"
)

// Operation constants for request.
const (
	OpCreateRun        = "create_run"
	OpSaveSnapshot     = "save_snapshot"
	OpAppendStageEvent = "append_stage_event"
	OpFinishRun        = "finish_run"
)

// request is one queued write. Only the fields of its operation are set.
type request struct {
	at        time.Time
	run       *Run
	event     *StageEvent
	operation string
	runID     string
	stateJSON string
	status    string
	errMsg    string
}

// DefaultQueueSize is the write queue capacity of a Recorder.
const DefaultQueueSize = 64

const writeTimeout = 10 * time.Second

// Recorder is a pipeline observer that persists runs through a single writer
// goroutine. Writes are fire-and-forget; failures are logged. Close drains
// the queue.
type Recorder struct {
	pipeline.NopObserver
	store    Store
	requests chan *request
	done     chan struct{}
	logger   *logx.Logger
	now      func() time.Time
	once     sync.Once
}

// NewRecorder starts the writer for store.
func NewRecorder(store Store, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	r := &Recorder{
		store:    store,
		requests: make(chan *request, queueSize),
		done:     make(chan struct{}),
		logger:   logx.NewLogger("persistence"),
		now:      time.Now,
	}
	go r.worker()
	return r
}

func (r *Recorder) worker() {
	defer close(r.done)
	for req := range r.requests {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.apply(ctx, req); err != nil {
			r.logger.Error("persistence %s failed: %v", req.operation, err)
		}
		cancel()
	}
}

func (r *Recorder) apply(ctx context.Context, req *request) error {
	switch req.operation {
	case OpCreateRun:
		return r.store.CreateRun(ctx, req.run)
	case OpSaveSnapshot:
		return r.store.SaveSnapshot(ctx, req.runID, req.stateJSON)
	case OpAppendStageEvent:
		return r.store.AppendStageEvent(ctx, req.event)
	case OpFinishRun:
		return r.store.FinishRun(ctx, req.runID, req.status, req.errMsg, req.at)
	default:
		r.logger.Warn("unknown persistence operation %q", req.operation)
		return nil
	}
}

func (r *Recorder) enqueue(req *request) {
	r.requests <- req
}

func (r *Recorder) snapshot(s *pipeline.State) {
	stateJSON, err := encodeState(s)
	if err != nil {
		r.logger.Error("%v", err)
		return
	}
	r.enqueue(&request{operation: OpSaveSnapshot, runID: s.RunID, stateJSON: stateJSON})
}

// RunStarted creates the run record.
func (r *Recorder) RunStarted(_ context.Context, s *pipeline.State) {
	stateJSON, err := encodeState(s)
	if err != nil {
		r.logger.Error("%v", err)
	}
	r.enqueue(&request{operation: OpCreateRun, run: &Run{
		ID:        s.RunID,
		Company:   s.Company.Name,
		Industry:  s.Company.Industry,
		Status:    pipeline.StatusRunning,
		StartedAt: r.now().UTC(),
		StateJSON: stateJSON,
	}})
}

// StageFinished records the stage and, when it committed, the new snapshot.
func (r *Recorder) StageFinished(_ context.Context, runID string, result pipeline.StageResult, s *pipeline.State) {
	r.enqueue(&request{operation: OpAppendStageEvent, event: NewStageEvent(runID, result, r.now())})
	if result.Err == nil {
		r.snapshot(s)
	}
}

// RunFinished records the final status.
func (r *Recorder) RunFinished(_ context.Context, s *pipeline.State, status string, err error) {
	var errMsg string
	if err != nil {
		errMsg = err.Error()
	}
	r.enqueue(&request{operation: OpFinishRun, runID: s.RunID, status: status, errMsg: errMsg, at: r.now()})
}

// Close stops accepting writes and waits for the queue to drain.
func (r *Recorder) Close() {
	r.once.Do(func() {
		close(r.requests)
		<-r.done
	})
}
