package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"dtplanner/pkg/interview"
	"dtplanner/pkg/metrics"
	"dtplanner/pkg/pipeline"
)

// Color palette
var (
	colorSuccess = lipgloss.Color("#00D787")
	colorError   = lipgloss.Color("#FF5F87")
	colorWarning = lipgloss.Color("#FFAF00")
	colorInfo    = lipgloss.Color("#5FAFFF")
	colorMuted   = lipgloss.Color("#888888")
)

// Text styles
var (
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleTitle   = lipgloss.NewStyle().Foreground(colorInfo).Bold(true)
)

func outcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case metrics.OutcomeSuccess, pipeline.StatusSucceeded:
		return styleSuccess
	case metrics.OutcomeDegraded, metrics.OutcomeSkipped:
		return styleWarning
	default:
		return styleError
	}
}

// progressObserver prints one line per stage and per finished interview.
type progressObserver struct {
	pipeline.NopObserver
	mu sync.Mutex
	w  io.Writer
}

func newProgressObserver(w io.Writer) *progressObserver {
	return &progressObserver{w: w}
}

func (p *progressObserver) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func (p *progressObserver) RunStarted(_ context.Context, s *pipeline.State) {
	p.printf("%s %s (%s)\n", styleTitle.Render("Planning for"), s.Company.Name, styleMuted.Render(s.RunID))
}

func (p *progressObserver) StageStarted(_ context.Context, _ string, stage string) {
	p.printf("  %s %s\n", styleMuted.Render("○"), stage)
}

func (p *progressObserver) StageFinished(_ context.Context, _ string, r pipeline.StageResult, _ *pipeline.State) {
	outcome := r.Outcome()
	line := fmt.Sprintf("  %s %s %s", outcomeStyle(outcome).Render("●"), r.Stage, outcomeStyle(outcome).Render(outcome))
	if r.Attempts > 1 {
		line += styleMuted.Render(fmt.Sprintf(" after %d attempts", r.Attempts))
	}
	if r.Err != nil {
		line += styleMuted.Render(": " + r.Err.Error())
	}
	p.printf("%s %s\n", line, styleMuted.Render(r.Duration.Round(100*time.Millisecond).String()))
}

func (p *progressObserver) InterviewEvent(_ context.Context, _ string, ev interview.Event) {
	if ev.Step != interview.StepTerminated {
		return
	}
	p.printf("    %s interview with %s finished after %d answers (%s)\n", styleMuted.Render("↳"), ev.Expert, ev.Turn, ev.Detail)
}

func (p *progressObserver) RunFinished(_ context.Context, _ *pipeline.State, status string, _ error) {
	p.printf("%s %s\n", styleTitle.Render("Run"), outcomeStyle(status).Render(status))
}
