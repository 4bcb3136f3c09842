package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"dtplanner/pkg/agent"
	agentmetrics "dtplanner/pkg/agent/middleware/metrics"
	"dtplanner/pkg/config"
	"dtplanner/pkg/logx"
	"dtplanner/pkg/metrics"
	"dtplanner/pkg/persistence"
	"dtplanner/pkg/pipeline"
	"dtplanner/pkg/search"
)

// plannerOptions are the knobs a run exposes beyond configuration.
type plannerOptions struct {
	progress    io.Writer // nil disables the progress printer
	noStore     bool
	searcher    *search.Searcher // nil builds one from config
	factoryOpts []agent.Option
}

// planner owns everything one pipeline run needs. Close releases the store.
type planner struct {
	orchestrator *pipeline.Orchestrator
	registry     *prometheus.Registry
	recorder     *persistence.Recorder
	store        persistence.Store
	logger       *logx.Logger
}

func newPlanner(ctx context.Context, cfg *config.Config, opts plannerOptions) (*planner, error) {
	p := &planner{
		registry: prometheus.NewRegistry(),
		logger:   logx.NewLogger("dtplanner"),
	}

	var llmRecorder agentmetrics.Recorder = agentmetrics.Nop()
	var observers []pipeline.Observer
	observers = append(observers, pipeline.NewLoggingObserver())
	if cfg.Metrics.Enabled {
		llmRecorder = agentmetrics.NewPrometheusRecorder(p.registry)
		observers = append(observers, pipeline.NewMetricsObserver(metrics.NewPipelineRecorder(p.registry)))
	}
	if opts.progress != nil {
		observers = append(observers, newProgressObserver(opts.progress))
	}

	factory := agent.NewLLMClientFactory(cfg, llmRecorder, opts.factoryOpts...)
	clients, err := workloadClients(factory)
	if err != nil {
		return nil, err
	}

	searcher := opts.searcher
	if searcher == nil {
		searcher = search.NewSearcherFromConfig(cfg.Search)
	}
	p.logger.Info("web search provider: %s", searcher.ProviderName())

	components, err := pipeline.NewComponents(clients, searcher, nil, cfg.LLM.MaxConcurrency)
	if err != nil {
		return nil, err
	}
	components.MaxTurns = cfg.Pipeline.MaxTurns
	components.MaxParallel = cfg.Pipeline.MaxParallelInterviews
	components.NumAspects = cfg.Pipeline.NumAspects
	components.NumExperts = cfg.Pipeline.NumExperts

	if !opts.noStore {
		store, err := persistence.Open(ctx, cfg.Storage)
		switch {
		case errors.Is(err, persistence.ErrDisabled):
		case err != nil:
			return nil, err
		default:
			p.store = store
			p.recorder = persistence.NewRecorder(store, persistence.DefaultQueueSize)
			observers = append(observers, p.recorder)
		}
	}

	p.orchestrator = pipeline.NewOrchestrator(pipeline.DefaultStages(components),
		pipeline.WithStageTimeout(cfg.Pipeline.StageTimeout),
		pipeline.WithObservers(observers...),
	)
	return p, nil
}

func workloadClients(factory *agent.LLMClientFactory) (pipeline.Clients, error) {
	var clients pipeline.Clients
	var err error
	if clients.Interview, err = factory.ForWorkload(config.WorkloadInterview); err != nil {
		return clients, fmt.Errorf("failed to create interview client: %w", err)
	}
	if clients.Assessment, err = factory.ForWorkload(config.WorkloadAssessment); err != nil {
		return clients, fmt.Errorf("failed to create assessment client: %w", err)
	}
	if clients.Planning, err = factory.ForWorkload(config.WorkloadPlanning); err != nil {
		return clients, fmt.Errorf("failed to create planning client: %w", err)
	}
	return clients, nil
}

// Close flushes pending persistence writes and closes the store.
func (p *planner) Close() error {
	if p.recorder != nil {
		p.recorder.Close()
	}
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}
