// Package realtime implements the live capture command.
package realtime

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jtoivola/fretwatch-go/internal/analysis"
	"github.com/jtoivola/fretwatch-go/internal/conf"
	"github.com/jtoivola/fretwatch-go/internal/telemetry"
)

// Command creates the command for realtime note detection.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Detect guitar notes from a live audio source",
		Long:  "Capture audio from the configured device and detect plucked notes in real time.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := telemetry.Init(settings); err != nil {
				return err
			}
			defer telemetry.Flush(2 * time.Second)
			return analysis.RealtimeAnalysis(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the realtime command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Audio.Source, "source", viper.GetString("audio.source"), "Audio capture source (\"sysdefault\", \"USB Audio\", etc.)")
	cmd.Flags().BoolVar(&settings.Detection.ProcessingTime, "processingtime", viper.GetBool("detection.processingtime"), "Report processing time for each analysis tick")
	cmd.Flags().BoolVar(&settings.Realtime.API.Enabled, "api", viper.GetBool("realtime.api.enabled"), "Enable JSON/SSE API server")
	cmd.Flags().StringVar(&settings.Realtime.API.Listen, "apilisten", viper.GetString("realtime.api.listen"), "Listen address and port of API server")
	cmd.Flags().BoolVar(&settings.Realtime.Telemetry.Enabled, "telemetry", viper.GetBool("realtime.telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Realtime.Telemetry.Listen, "listen", viper.GetString("realtime.telemetry.listen"), "Listen address and port of telemetry endpoint")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
