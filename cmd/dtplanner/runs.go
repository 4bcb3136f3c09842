package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"dtplanner/pkg/persistence"
)

var (
	runsLimit     int
	runsJSON      bool
	runsExportOut string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List, show and export persisted runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd.Context(), func(store persistence.Store) error {
			runs, err := store.ListRuns(cmd.Context(), runsLimit)
			if err != nil {
				return err
			}
			if runsJSON {
				return writeJSON(cmd.OutOrStdout(), runs)
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		})
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show a run and its stage history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(store persistence.Store) error {
			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			events, err := store.StageEvents(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			if runsJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"run": run, "stages": events})
			}
			printRun(cmd.OutOrStdout(), run, events)
			return nil
		})
	},
}

var runsExportCmd = &cobra.Command{
	Use:   "export RUN_ID",
	Short: "Write the markdown reports of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(store persistence.Store) error {
			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			state, err := run.State()
			if err != nil {
				return err
			}
			written, err := writeReports(runsExportOut, state)
			if err != nil {
				return err
			}
			for _, path := range written {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		})
	},
}

func init() {
	runsListCmd.Flags().IntVar(&runsLimit, "limit", persistence.DefaultListLimit, "maximum number of runs")
	runsCmd.PersistentFlags().BoolVar(&runsJSON, "json", false, "print JSON")
	runsExportCmd.Flags().StringVar(&runsExportOut, "out", ".", "output directory")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsExportCmd)
}

// withStore opens the configured store for the duration of fn.
func withStore(ctx context.Context, fn func(persistence.Store) error) error {
	store, err := persistence.Open(ctx, appCfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRuns(w io.Writer, runs []*persistence.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, styleMuted.Render("No runs yet. Start one with 'dtplanner run --sample'."))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMPANY\tINDUSTRY\tSTATUS\tSTARTED\tDURATION")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			run.ID, run.Company, run.Industry, run.Status,
			run.StartedAt.Local().Format("2006-01-02 15:04"), runDuration(run))
	}
	_ = tw.Flush()
}

func printRun(w io.Writer, run *persistence.Run, events []*persistence.StageEvent) {
	fmt.Fprintf(w, "%s %s (%s)\n", styleTitle.Render(run.Company), run.Industry, styleMuted.Render(run.ID))
	fmt.Fprintf(w, "Status:  %s\n", outcomeStyle(run.Status).Render(run.Status))
	fmt.Fprintf(w, "Started: %s\n", run.StartedAt.Local().Format(time.RFC1123))
	if d := runDuration(run); d != "-" {
		fmt.Fprintf(w, "Took:    %s\n", d)
	}
	if run.Error != "" {
		fmt.Fprintf(w, "Error:   %s\n", styleError.Render(run.Error))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tOUTCOME\tATTEMPTS\tDURATION\tERROR")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", ev.Stage, ev.Outcome, ev.Attempts,
			(time.Duration(ev.DurationMS) * time.Millisecond).String(), ev.Error)
	}
	_ = tw.Flush()
}

func runDuration(run *persistence.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
}
