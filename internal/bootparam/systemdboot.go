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

// systemdBootStrategy prefers the single /etc/kernel/cmdline file; when
// that is absent it falls back to rewriting the options line inside every
// loader entry.
type systemdBootStrategy struct {
	root string
}

func (s *systemdBootStrategy) kind() models.BootloaderKind { return models.BootloaderSystemdBoot }

func (s *systemdBootStrategy) cmdlinePath() string {
	return filepath.Join(s.root, "etc/kernel/cmdline")
}

func (s *systemdBootStrategy) entriesDir() string {
	return filepath.Join(s.root, "boot/loader/entries")
}

func (s *systemdBootStrategy) detect() bool {
	if fileExists(filepath.Join(s.root, "boot/loader/loader.conf")) {
		return true
	}
	return dirExists(s.entriesDir())
}

func (s *systemdBootStrategy) mutate(fn mutator) (bool, error) {
	if fileExists(s.cmdlinePath()) {
		return s.mutateCmdlineFile(fn)
	}
	return s.mutateEntries(fn)
}

func (s *systemdBootStrategy) mutateCmdlineFile(fn mutator) (bool, error) {
	data, err := os.ReadFile(s.cmdlinePath())
	if err != nil {
		return false, fmt.Errorf("read %s: %w", s.cmdlinePath(), err)
	}
	tokens, changed := fn(SplitTokens(string(data)))
	if !changed {
		return false, nil
	}
	return true, os.WriteFile(s.cmdlinePath(), []byte(JoinTokens(tokens)+"\n"), 0644)
}

/**
 * Rewrite the options line of every loader entry
 * @param {mutator} fn - Token transformation to apply
 * @returns {(bool, error)} Whether any entry changed
 * @description
 * - Every *.conf under the entries directory is treated as one boot entry
 * - Entries without an options line gain one only when the mutation adds
 *   tokens; other lines pass through untouched
 */
func (s *systemdBootStrategy) mutateEntries(fn mutator) (bool, error) {
	entries, err := os.ReadDir(s.entriesDir())
	if err != nil {
		return false, fmt.Errorf("read loader entries: %w", err)
	}

	anyChanged := false
	touched := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".conf") {
			continue
		}
		touched++
		path := filepath.Join(s.entriesDir(), e.Name())
		changed, err := mutateEntryFile(path, fn)
		if err != nil {
			return anyChanged, err
		}
		anyChanged = anyChanged || changed
	}
	if touched == 0 {
		return false, errors.New("no loader entries found")
	}
	return anyChanged, nil
}

func mutateEntryFile(path string, fn mutator) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	for idx, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != "options" {
			continue
		}
		tokens, changed := fn(fields[1:])
		if !changed {
			return false, nil
		}
		lines[idx] = "options " + JoinTokens(tokens)
		return true, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
	}

	tokens, changed := fn(nil)
	if !changed {
		return false, nil
	}
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines[len(lines)-1] = "options " + JoinTokens(tokens)
		lines = append(lines, "")
	} else {
		lines = append(lines, "options "+JoinTokens(tokens), "")
	}
	return true, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
}

// regenerate is a no-op: loader entries and the cmdline file are read
// directly, the former at boot and the latter on the next kernel install.
func (s *systemdBootStrategy) regenerate(time.Duration) error {
	return nil
}
