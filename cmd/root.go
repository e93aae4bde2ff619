package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stomp-org/stomp/internal/build"
)

var (
	// cfgFile parameter
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:           build.Slug,
		Short:         "Discrete-event simulator for heterogeneous task scheduling.",
		Long:          `Discrete-event simulator for DAG workloads on heterogeneous server pools.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

// Execute adds all child commands to the root command and runs it. This is
// called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file (default is ./stomp.yaml)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(versionCmd())
}
