package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"dtplanner/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "dtplanner %s\n", version.Version)
		fmt.Fprintf(out, "  commit:  %s\n", version.Commit)
		fmt.Fprintf(out, "  built:   %s\n", version.Date)
		fmt.Fprintf(out, "  go:      %s\n", runtime.Version())
		fmt.Fprintf(out, "  os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}
