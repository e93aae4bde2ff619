package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stomp-org/stomp/internal/build"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(build.Version)
		},
	}
}
