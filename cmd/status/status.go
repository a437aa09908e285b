package status

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gz302-agent/cmd/root"
	"gz302-agent/services"
)

func init() {
	root.RootCmd.AddCommand(Cmd)
}

var Cmd = &cobra.Command{
	Use:     "status",
	Short:   "Show managed state, backups and per-component hardware status",
	Example: `  sudo gz302-agent status`,
	Run: func(cmd *cobra.Command, args []string) {
		r, err := services.Bootstrap(os.Stdout)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Print(r.Status())
	},
}
