package bootparam

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Shell-style defaults files (GRUB, Limine) keep the command line inside a
// double-quoted variable assignment. The file is parsed into lines, the one
// assignment is rewritten from structured tokens, and everything else is
// carried through byte for byte.

/**
 * Rewrite the quoted value of a variable assignment inside a defaults file
 * @param {string} path - File to edit; treated as empty when absent
 * @param {func} matchVar - Whether a variable name carries the command line
 * @param {string} defaultVar - Assignment to create when none matches
 * @param {mutator} fn - Token transformation to apply
 * @returns {(bool, error)} Whether the file changed, and any I/O error
 * @description
 * - Only the first matching uncommented assignment is edited
 * - An unchanged token set leaves the file untouched (byte-identical)
 */
func mutateShellVar(path string, matchVar func(string) bool, defaultVar string, fn mutator) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	for idx, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		name, rest, ok := strings.Cut(trimmed, "=")
		if !ok || !matchVar(strings.TrimSpace(name)) {
			continue
		}
		tokens, changed := fn(SplitTokens(unquote(rest)))
		if !changed {
			return false, nil
		}
		// always serialized quoted; an unquoted multi-token value would not
		// survive shell evaluation anyway
		lines[idx] = fmt.Sprintf("%s=%q", strings.TrimSpace(name), JoinTokens(tokens))
		return true, writeLines(path, lines)
	}

	// no assignment present; only create one when the mutation adds tokens
	tokens, changed := fn(nil)
	if !changed {
		return false, nil
	}
	newLine := fmt.Sprintf("%s=%q", defaultVar, JoinTokens(tokens))
	if len(lines) == 1 && lines[0] == "" {
		lines = []string{newLine, ""}
	} else {
		if lines[len(lines)-1] == "" {
			lines[len(lines)-1] = newLine
			lines = append(lines, "")
		} else {
			lines = append(lines, newLine, "")
		}
	}
	return true, writeLines(path, lines)
}

// unquote strips one layer of surrounding double quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func writeLines(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
}
