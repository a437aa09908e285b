package bootparam

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gz302-agent/internal/models"
)

// syslinuxStrategy edits APPEND lines in the syslinux or extlinux config,
// whichever is present.
type syslinuxStrategy struct {
	root string
}

func (s *syslinuxStrategy) kind() models.BootloaderKind { return models.BootloaderSyslinux }

func (s *syslinuxStrategy) configPath() string {
	for _, candidate := range []string{
		"boot/syslinux/syslinux.cfg",
		"boot/extlinux/extlinux.conf",
		"extlinux/extlinux.conf",
	} {
		path := filepath.Join(s.root, candidate)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func (s *syslinuxStrategy) detect() bool {
	return s.configPath() != ""
}

/**
 * Apply a token mutation to every APPEND line
 * @param {mutator} fn - Token transformation to apply
 * @returns {(bool, error)} Whether the config changed
 * @description
 * - APPEND is matched case-insensitively as the first field, preserving
 *   the line's original indentation and keyword casing
 * - A config without APPEND lines is refused rather than restructured
 */
func (s *syslinuxStrategy) mutate(fn mutator) (bool, error) {
	path := s.configPath()
	if path == "" {
		return false, errors.New("syslinux config not found")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	anyChanged := false
	sawAppend := false
	for idx, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 || !strings.EqualFold(fields[0], "APPEND") {
			continue
		}
		sawAppend = true
		tokens, changed := fn(fields[1:])
		if !changed {
			continue
		}
		indent := line[:strings.Index(line, fields[0])]
		lines[idx] = indent + fields[0] + " " + JoinTokens(tokens)
		anyChanged = true
	}
	if !sawAppend {
		return false, errors.New("no APPEND line in syslinux config")
	}
	if !anyChanged {
		return false, nil
	}
	return true, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
}

// regenerate is a no-op: the config is read directly at boot.
func (s *syslinuxStrategy) regenerate(time.Duration) error {
	return nil
}
