package bootparam

import (
	"os"

	"gz302-agent/internal/env"
	"gz302-agent/internal/models"
)

// candidates lists every strategy in detection priority order. The first
// one whose marker files match wins.
func candidates(root string) []strategy {
	return []strategy{
		&grubStrategy{root: root},
		&systemdBootStrategy{root: root},
		&limineStrategy{root: root},
		&refindStrategy{root: root},
		&syslinuxStrategy{root: root},
	}
}

/**
 * Detect the host bootloader by probing marker files
 * @param {*env.Environment} e - Environment whose FSRoot is probed
 * @returns {models.BootloaderKind} Detected kind, BootloaderUnknown if none
 */
func DetectBootloader(e *env.Environment) models.BootloaderKind {
	for _, s := range candidates(e.FSRoot) {
		if s.detect() {
			return s.kind()
		}
	}
	return models.BootloaderUnknown
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
