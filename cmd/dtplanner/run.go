package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"dtplanner/pkg/domain"
	"dtplanner/pkg/metrics"
	"dtplanner/pkg/pipeline"
)

var (
	runCompanyFile string
	runSample      bool
	runOutDir      string
	runMetricsOut  string
	runID          string
	runNoStore     bool
	runQuiet       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the planning pipeline for a company profile",
	Long: `Run the full planning pipeline: maturity assessment, transformation aspects,
expert personas, expert interviews, recommendations, the transformation plan,
the technology stack and the organizational readiness assessment.

The company profile is a YAML or JSON file:

  name: Acme
  industry: Retail
  description: Regional retail chain
  goals: [Improve customer experience]
  challenges: [Siloed customer data]
  technologies: [Legacy POS]

Examples:
  dtplanner run --sample --out report/
  dtplanner run --company acme.yaml --metrics-out metrics.txt`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runCompanyFile, "company", "", "company profile file (YAML or JSON)")
	runCmd.Flags().BoolVar(&runSample, "sample", false, "use the built-in HealthPlus sample company")
	runCmd.Flags().StringVar(&runOutDir, "out", "", "write markdown reports to this directory")
	runCmd.Flags().StringVar(&runMetricsOut, "metrics-out", "", "write Prometheus metrics to this file after the run")
	runCmd.Flags().StringVar(&runID, "run-id", "", "run ID (default: random UUID)")
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "do not persist the run")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "suppress stage progress")
	runCmd.MarkFlagsMutuallyExclusive("company", "sample")
}

func runRun(cmd *cobra.Command, _ []string) error {
	company, err := selectCompany(runCompanyFile, runSample)
	if err != nil {
		return err
	}
	if err := unlockSecrets(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := plannerOptions{noStore: runNoStore}
	if !runQuiet {
		opts.progress = cmd.ErrOrStderr()
	}
	p, err := newPlanner(ctx, appCfg, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			p.logger.Warn("failed to close store: %v", err)
		}
	}()

	state, runErr := p.orchestrator.Run(ctx, runID, company)

	if runMetricsOut != "" {
		if err := writeMetricsFile(runMetricsOut, p); err != nil {
			p.logger.Warn("%v", err)
		}
	}
	if state != nil && runOutDir != "" {
		written, err := writeReports(runOutDir, state)
		if err != nil {
			return err
		}
		for _, path := range written {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
	}
	if state != nil && runOutDir == "" && runErr == nil {
		if md, err := state.Markdown(pipeline.SectionPlan); err == nil {
			fmt.Fprintln(cmd.OutOrStdout(), md)
		}
	}
	return runErr
}

// selectCompany resolves the --company/--sample flags.
func selectCompany(file string, sample bool) (domain.CompanyProfile, error) {
	switch {
	case sample:
		return domain.SampleCompany(), nil
	case file != "":
		return domain.LoadCompanyProfile(file)
	default:
		return domain.CompanyProfile{}, errors.New("no company profile: pass --company FILE or --sample")
	}
}

// writeReports writes one markdown file per available section plus report.md.
// Sections the run did not produce are skipped.
func writeReports(dir string, state *pipeline.State) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	var written []string
	for _, section := range append(append([]string(nil), pipeline.Sections...), pipeline.SectionReport) {
		md, err := state.Markdown(section)
		if err != nil {
			continue
		}
		path := filepath.Join(dir, section+".md")
		if err := os.WriteFile(path, []byte(md+"\n"), 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func writeMetricsFile(path string, p *planner) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	defer f.Close()
	if err := metrics.WriteText(f, p.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
