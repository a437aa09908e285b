package bootparam

import (
	"errors"
	"path/filepath"
	"time"

	"gz302-agent/internal/models"
	"gz302-agent/internal/utils"
)

// grubStrategy edits GRUB_CMDLINE_LINUX_DEFAULT in the defaults file and
// triggers a full config regeneration afterwards.
type grubStrategy struct {
	root string
}

func (g *grubStrategy) kind() models.BootloaderKind { return models.BootloaderGrub }

func (g *grubStrategy) configPath() string {
	return filepath.Join(g.root, "etc/default/grub")
}

func (g *grubStrategy) detect() bool {
	if !fileExists(g.configPath()) {
		return false
	}
	return dirExists(filepath.Join(g.root, "boot/grub")) ||
		dirExists(filepath.Join(g.root, "boot/grub2"))
}

func (g *grubStrategy) mutate(fn mutator) (bool, error) {
	return mutateShellVar(g.configPath(),
		func(name string) bool { return name == "GRUB_CMDLINE_LINUX_DEFAULT" },
		"GRUB_CMDLINE_LINUX_DEFAULT", fn)
}

/**
 * Regenerate grub.cfg after a defaults-file edit
 * @param {time.Duration} timeout - Bound on the external tool
 * @returns {error} Error when no regeneration tool exists or it fails
 * @description
 * - Tries grub-mkconfig, then the Fedora/SUSE grub2-mkconfig, then the
 *   Debian update-grub wrapper
 */
func (g *grubStrategy) regenerate(timeout time.Duration) error {
	switch {
	case utils.CheckCommand("grub-mkconfig"):
		_, err := utils.RunCommand(timeout, "grub-mkconfig", "-o", "/boot/grub/grub.cfg")
		return err
	case utils.CheckCommand("grub2-mkconfig"):
		_, err := utils.RunCommand(timeout, "grub2-mkconfig", "-o", "/boot/grub2/grub.cfg")
		return err
	case utils.CheckCommand("update-grub"):
		_, err := utils.RunCommand(timeout, "update-grub")
		return err
	}
	return errors.New("no grub regeneration tool found")
}
