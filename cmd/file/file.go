// Package file implements the offline file analysis command.
package file

import (
	"github.com/spf13/cobra"

	"github.com/jtoivola/fretwatch-go/internal/analysis"
	"github.com/jtoivola/fretwatch-go/internal/conf"
)

// Command creates the command for analyzing audio files.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "file [flags] path ...",
		Short: "Detect guitar notes in audio files",
		Long:  "Analyze one or more audio files and print the notes detected in each.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.FileAnalysis(settings, args)
		},
	}
}
