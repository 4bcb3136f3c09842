package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"dtplanner/pkg/domain"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Print the built-in sample company profile",
	Long: `Print the HealthPlus Medical Group profile as YAML. Save it and edit it
to start a profile of your own:

  dtplanner sample > company.yaml
  dtplanner run --company company.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := yaml.Marshal(domain.SampleCompany())
		if err != nil {
			return fmt.Errorf("failed to encode sample profile: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}
