package root

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "gz302-agent",
	Short: "Hardware reconciliation agent for the ASUS ROG Flow Z13 GZ302",
	Long: `gz302-agent keeps the GZ302's hardware workarounds in step with the
running kernel: it applies the driver options, udev rules, service units
and boot parameters the hardware still needs, and removes the ones the
kernel has absorbed upstream.`,
}
