package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dtplanner/pkg/metrics"
)

var (
	usagePrometheusURL string
	usageBy            string
	usageJSON          bool
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Summarize token usage from Prometheus",
	Long: `Query a Prometheus server that scrapes dtplanner for LLM token and request
counts, grouped by pipeline stage or by model.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		qs, err := metrics.NewQueryService(usagePrometheusURL)
		if err != nil {
			return err
		}

		var usage map[string]*metrics.TokenUsage
		switch usageBy {
		case "stage":
			usage, err = qs.UsageByStage(cmd.Context())
		case "model":
			usage, err = qs.UsageByModel(cmd.Context())
		default:
			return fmt.Errorf("--by must be stage or model, got %q", usageBy)
		}
		if err != nil {
			return err
		}
		if usageJSON {
			return writeJSON(cmd.OutOrStdout(), usage)
		}

		labels := make([]string, 0, len(usage))
		for label := range usage {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "%s\tREQUESTS\tERRORS\tPROMPT\tCOMPLETION\tTOTAL\n", strings.ToUpper(usageBy))
		for _, label := range labels {
			u := usage[label]
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", label, u.Requests, u.Errors, u.PromptTokens, u.CompletionTokens, u.TotalTokens)
		}
		return tw.Flush()
	},
}

func init() {
	usageCmd.Flags().StringVar(&usagePrometheusURL, "prometheus-url", "http://localhost:9090", "Prometheus server URL")
	usageCmd.Flags().StringVar(&usageBy, "by", "stage", "group by stage or model")
	usageCmd.Flags().BoolVar(&usageJSON, "json", false, "print JSON")
}
