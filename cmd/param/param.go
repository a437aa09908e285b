package param

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gz302-agent/cmd/root"
	"gz302-agent/internal/bootparam"
	"gz302-agent/internal/config"
	"gz302-agent/internal/env"
)

var overwrite bool

func init() {
	root.RootCmd.AddCommand(paramCmd)
	paramCmd.AddCommand(ensureCmd, removeCmd)
	ensureCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing value for the same key")
}

var paramCmd = &cobra.Command{
	Use:   "param",
	Short: "Edit kernel boot parameters through the detected bootloader",
	Long: `Direct access to the kernel parameter injector. The bootloader is
detected from its marker files (GRUB, systemd-boot, Limine, rEFInd,
syslinux); an unidentifiable bootloader is refused rather than guessed
at.`,
}

const ensureExample = `  # make sure a parameter is on the kernel command line
  sudo gz302-agent param ensure amd_pstate=guided

  # replace an existing value for the same key
  sudo gz302-agent param ensure amd_pstate=guided --overwrite`

var ensureCmd = &cobra.Command{
	Use:     "ensure <token>",
	Short:   "Add a kernel parameter if it is not already present",
	Example: ensureExample,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inj := newInjector()
		ensure := inj.EnsureParameter
		if overwrite {
			ensure = inj.EnsureParameterValue
		}
		changed, err := ensure(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if changed {
			fmt.Printf("%s: added %s\n", inj.Kind(), args[0])
		} else {
			fmt.Printf("%s: no change needed\n", inj.Kind())
		}
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove <key>",
	Short:   "Remove every kernel parameter with the given key",
	Example: `  sudo gz302-agent param remove amd_pstate`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inj := newInjector()
		changed, err := inj.RemoveParameter(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if changed {
			fmt.Printf("%s: removed %s\n", inj.Kind(), args[0])
		} else {
			fmt.Printf("%s: nothing to remove\n", inj.Kind())
		}
	},
}

func newInjector() *bootparam.Injector {
	e := env.DetectEnvironment()
	if !e.IsRoot() {
		fmt.Fprintln(os.Stderr, "gz302-agent param must run as root")
		os.Exit(1)
	}
	timeout := time.Duration(config.Config.Exec.TimeoutSeconds) * time.Second
	return bootparam.New(e, timeout)
}
