package cmd

import (
	"fmt"
	"runtime"

	"gz302-agent/cmd/root"

	"github.com/spf13/cobra"
)

// Filled in through -ldflags at build time; "dev" marks a local build.
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the agent version and build provenance",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gz302-agent %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
		if Commit != "" {
			fmt.Printf("  commit: %s\n", Commit)
		}
		if BuildDate != "" {
			fmt.Printf("  built:  %s\n", BuildDate)
		}
	},
}

func init() {
	root.RootCmd.AddCommand(versionCmd)

	versionCmd.Example = `  gz302-agent version`
}
