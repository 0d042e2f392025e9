// Package support implements the diagnostics report command.
package support

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jtoivola/fretwatch-go/internal/conf"
	"github.com/jtoivola/fretwatch-go/internal/diagnostics"
)

// output holds the output path flag value
var output string

// Command creates the command for generating a support report.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "support",
		Short: "Generate a diagnostics report for troubleshooting",
		Long:  "Collect system and configuration details into a YAML report. Secrets are redacted before anything is written.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSupport(settings)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to this file instead of stdout")

	return cmd
}

func runSupport(settings *conf.Settings) error {
	report := diagnostics.Collect(settings)

	data, err := report.YAML()
	if err != nil {
		return err
	}

	if output == "" {
		output = fmt.Sprintf("fretwatch-support-%s.yaml", time.Now().Format("20060102-150405"))
	}
	if output == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Printf("support report written to %s\n", output)
	return nil
}
