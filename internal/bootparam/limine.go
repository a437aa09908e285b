package bootparam

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"gz302-agent/internal/models"
	"gz302-agent/internal/utils"
)

// limineStrategy edits the KERNEL_CMDLINE assignment in /etc/default/limine
// and reruns the distribution's entry generator.
type limineStrategy struct {
	root string
}

func (l *limineStrategy) kind() models.BootloaderKind { return models.BootloaderLimine }

func (l *limineStrategy) configPath() string {
	return filepath.Join(l.root, "etc/default/limine")
}

func (l *limineStrategy) detect() bool {
	if fileExists(l.configPath()) {
		return true
	}
	return dirExists(filepath.Join(l.root, "boot/limine"))
}

func (l *limineStrategy) mutate(fn mutator) (bool, error) {
	// the assignment may carry an entry subscript, e.g. KERNEL_CMDLINE[default]
	return mutateShellVar(l.configPath(),
		func(name string) bool { return strings.HasPrefix(name, "KERNEL_CMDLINE") },
		"KERNEL_CMDLINE[default]", fn)
}

func (l *limineStrategy) regenerate(timeout time.Duration) error {
	switch {
	case utils.CheckCommand("limine-update"):
		_, err := utils.RunCommand(timeout, "limine-update")
		return err
	case utils.CheckCommand("limine-mkinitcpio"):
		_, err := utils.RunCommand(timeout, "limine-mkinitcpio")
		return err
	}
	return errors.New("no limine regeneration tool found")
}
