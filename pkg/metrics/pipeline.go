package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Stage outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeDegraded = "degraded"
	OutcomeSkipped  = "skipped" // failed, pipeline continued
	OutcomeFailed   = "failed"
)

// PipelineRecorder holds the pipeline-level collectors.
type PipelineRecorder struct {
	runsTotal       *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	stageAttempts   *prometheus.CounterVec
	interviewEvents *prometheus.CounterVec
	searchQueries   *prometheus.CounterVec
	activeRuns      prometheus.Gauge
}

// NewPipelineRecorder registers the pipeline collectors with reg.
func NewPipelineRecorder(reg prometheus.Registerer) *PipelineRecorder {
	factory := promauto.With(reg)
	return &PipelineRecorder{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dtplanner_runs_total",
				Help: "Pipeline runs by final status",
			},
			[]string{"status"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dtplanner_stage_duration_seconds",
				Help:    "Wall time of each pipeline stage including retries",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"stage", "outcome"},
		),
		stageAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dtplanner_stage_attempts_total",
				Help: "Stage attempts, counting retries",
			},
			[]string{"stage"},
		),
		interviewEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dtplanner_interview_steps_total",
				Help: "Interview state machine transitions",
			},
			[]string{"step", "degraded"},
		),
		searchQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dtplanner_search_batches_total",
				Help: "Interview search batches by result",
			},
			[]string{"result"},
		),
		activeRuns: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dtplanner_active_runs",
			Help: "Pipeline runs in progress",
		}),
	}
}

// RunStarted marks a run as in progress.
func (p *PipelineRecorder) RunStarted() {
	p.activeRuns.Inc()
}

// RunFinished records the final status of a run.
func (p *PipelineRecorder) RunFinished(status string) {
	p.activeRuns.Dec()
	p.runsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records one finished stage.
func (p *PipelineRecorder) ObserveStage(stage, outcome string, attempts int, d time.Duration) {
	p.stageDuration.WithLabelValues(stage, outcome).Observe(d.Seconds())
	p.stageAttempts.WithLabelValues(stage).Add(float64(attempts))
}

// ObserveInterviewStep counts one interview transition.
func (p *PipelineRecorder) ObserveInterviewStep(step string, degraded bool) {
	p.interviewEvents.WithLabelValues(step, fmt.Sprint(degraded)).Inc()
}

// ObserveSearchBatch counts one search batch. failed marks a batch with no
// usable results.
func (p *PipelineRecorder) ObserveSearchBatch(failed bool) {
	result := "ok"
	if failed {
		result = "failed"
	}
	p.searchQueries.WithLabelValues(result).Inc()
}

// WriteText writes every metric family gathered from g in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
