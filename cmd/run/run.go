package run

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gz302-agent/cmd/root"
	"gz302-agent/internal/config"
	"gz302-agent/internal/lock"
	"gz302-agent/internal/logger"
	"gz302-agent/services"
)

var (
	force     bool
	component string
	noMetrics bool
)

func init() {
	root.RootCmd.AddCommand(Cmd)
	Cmd.Flags().SortFlags = false
	Cmd.Flags().BoolVarP(&force, "force", "f", false, "Rewrite artifacts even when they already match")
	Cmd.Flags().StringVarP(&component, "component", "c", "", "Reconcile one component only (network/gpu/input/audio/platform)")
	Cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "Skip writing the textfile metrics snapshot")
}

const runExample = `  # reconcile everything against the running kernel
  sudo gz302-agent run

  # rewrite artifacts even when they look right
  sudo gz302-agent run --force

  # only the Wi-Fi radio
  sudo gz302-agent run -c network`

var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Detect hardware, apply what is needed, remove what is obsolete",
	Long: `Runs one full reconciliation: every component manager detects its
hardware, asks the kernel compatibility table what the running kernel
still needs, applies the missing artifacts and removes the obsolete
ones, then verifies the result. Exits non-zero when anything needs the
operator's attention.`,
	Example: runExample,
	Run: func(cmd *cobra.Command, args []string) {
		runLock := services.NewRunLock()
		if err := runLock.Acquire(); err != nil {
			if err == lock.ErrAlreadyRunning {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "run lock: %v\n", err)
			os.Exit(1)
		}
		defer runLock.Release()

		r, err := services.Bootstrap(os.Stdout)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		summary := r.Run(force, component)

		if !noMetrics {
			if err := services.WriteRunMetrics(config.Config.Directory.Metrics, summary); err != nil {
				logger.Warnf("metrics snapshot: %v", err)
			}
		}
		if !summary.Clean() {
			os.Exit(1)
		}
	},
}
