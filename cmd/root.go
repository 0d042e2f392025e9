// Package cmd assembles the fretwatch command tree.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jtoivola/fretwatch-go/cmd/benchmark"
	"github.com/jtoivola/fretwatch-go/cmd/file"
	"github.com/jtoivola/fretwatch-go/cmd/realtime"
	"github.com/jtoivola/fretwatch-go/cmd/stats"
	"github.com/jtoivola/fretwatch-go/cmd/support"
	"github.com/jtoivola/fretwatch-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fretwatch",
		Short: "Fretwatch guitar note detector",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		realtime.Command(settings),
		file.Command(settings),
		benchmark.Command(settings),
		stats.Command(settings),
		support.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := cmd.Flags().Parse(args); err != nil {
			return err
		}
		// Command line arguments take precedence over the config file.
		conf.SyncViper(settings)
		return nil
	}

	return rootCmd
}

// setupFlags configures global flags available to every subcommand.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	_ = viper.BindPFlags(cmd.PersistentFlags())
}
