package bootparam

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gz302-agent/internal/models"
)

// refindStrategy edits /boot/refind_linux.conf, whose lines pair a quoted
// menu title with a quoted option string.
type refindStrategy struct {
	root string
}

func (r *refindStrategy) kind() models.BootloaderKind { return models.BootloaderRefind }

func (r *refindStrategy) configPath() string {
	return filepath.Join(r.root, "boot/refind_linux.conf")
}

func (r *refindStrategy) detect() bool {
	return fileExists(r.configPath())
}

/**
 * Apply a token mutation to every menu line of refind_linux.conf
 * @param {mutator} fn - Token transformation to apply
 * @returns {(bool, error)} Whether the file changed
 * @description
 * - Each non-comment line is parsed into its two quoted strings; the
 *   second one holds the kernel command line
 * - A missing or empty file gains one standard entry when tokens are added
 */
func (r *refindStrategy) mutate(fn mutator) (bool, error) {
	data, err := os.ReadFile(r.configPath())
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("read %s: %w", r.configPath(), err)
	}

	lines := strings.Split(string(data), "\n")
	anyChanged := false
	sawEntry := false
	for idx, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		title, options, ok := splitQuotedPair(trimmed)
		if !ok {
			continue
		}
		sawEntry = true
		tokens, changed := fn(SplitTokens(options))
		if !changed {
			continue
		}
		lines[idx] = fmt.Sprintf("%q %q", title, JoinTokens(tokens))
		anyChanged = true
	}

	if !sawEntry {
		tokens, changed := fn(nil)
		if !changed {
			return false, nil
		}
		entry := fmt.Sprintf("%q %q", "Boot with standard options", JoinTokens(tokens))
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines[len(lines)-1] = entry
			lines = append(lines, "")
		} else {
			lines = append(lines, entry, "")
		}
		anyChanged = true
	}

	if !anyChanged {
		return false, nil
	}
	return true, os.WriteFile(r.configPath(), []byte(strings.Join(lines, "\n")), 0644)
}

// regenerate is a no-op: rEFInd reads the file at boot.
func (r *refindStrategy) regenerate(time.Duration) error {
	return nil
}

// splitQuotedPair pulls the two double-quoted strings off a menu line.
func splitQuotedPair(line string) (title, options string, ok bool) {
	first := strings.IndexByte(line, '"')
	if first < 0 {
		return "", "", false
	}
	second := strings.IndexByte(line[first+1:], '"')
	if second < 0 {
		return "", "", false
	}
	title = line[first+1 : first+1+second]
	rest := line[first+second+2:]

	third := strings.IndexByte(rest, '"')
	if third < 0 {
		return "", "", false
	}
	fourth := strings.IndexByte(rest[third+1:], '"')
	if fourth < 0 {
		return "", "", false
	}
	options = rest[third+1 : third+1+fourth]
	return title, options, true
}
