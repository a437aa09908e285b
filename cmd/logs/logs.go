package logs

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gz302-agent/cmd/root"
	"gz302-agent/internal/config"
	"gz302-agent/internal/state"
)

var lines int

func init() {
	root.RootCmd.AddCommand(Cmd)
	Cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of log lines to show")
}

var Cmd = &cobra.Command{
	Use:     "logs",
	Short:   "Show the tail of the install log",
	Example: `  gz302-agent logs -n 50`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := &config.Config
		st := state.NewManager(cfg.Directory.State, cfg.Directory.Backups, cfg.Log.Path)
		tail := st.LogTail(lines)
		if len(tail) == 0 {
			fmt.Fprintf(os.Stderr, "no log entries at %s\n", cfg.Log.Path)
			return
		}
		for _, line := range tail {
			fmt.Println(line)
		}
	},
}
