package rollback

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gz302-agent/cmd/root"
	"gz302-agent/internal/state"
	"gz302-agent/services"
)

func init() {
	root.RootCmd.AddCommand(Cmd)
}

const rollbackExample = `  # restore the pre-agent version of one artifact
  sudo gz302-agent rollback network wifi-aspm-disable

  # see what can be rolled back
  sudo gz302-agent status`

var Cmd = &cobra.Command{
	Use:     "rollback <component> <action>",
	Short:   "Restore the backed-up version of one managed artifact",
	Example: rollbackExample,
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		r, err := services.Bootstrap(os.Stdout)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		component, action := args[0], args[1]
		if err := r.State().Rollback(component, action); err != nil {
			if err == state.ErrNothingToRollback {
				fmt.Fprintf(os.Stderr, "nothing to roll back for %s/%s\n", component, action)
			} else {
				fmt.Fprintf(os.Stderr, "rollback failed: %v\n", err)
			}
			os.Exit(1)
		}
		fmt.Printf("rolled back %s/%s\n", component, action)
	},
}
