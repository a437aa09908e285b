package bootparam

import (
	"strings"
)

// Kernel command lines are whitespace separated key or key=value tokens.
// All mutation happens on the token slice, never by substring matching, so
// "amd_pstate=guided" can never be confused with "amd_pstate=guided2" or a
// token that merely contains the key.

// SplitTokens breaks a command line into its tokens.
func SplitTokens(line string) []string {
	return strings.Fields(line)
}

// JoinTokens serializes tokens back with single spaces.
func JoinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
}

// TokenKey returns the key part of a key=value token.
func TokenKey(token string) string {
	if i := strings.IndexByte(token, '='); i >= 0 {
		return token[:i]
	}
	return token
}

/**
 * Ensure a token is present exactly once on a command line
 * @param {[]string} tokens - Current command line tokens
 * @param {string} token - Desired key or key=value token
 * @param {bool} overwrite - Replace an existing value for the same key
 * @returns {([]string, bool)} New token slice and whether it changed
 * @description
 * - Key present with the identical token: no-op
 * - Key present with a different value: left alone unless overwrite is set,
 *   so user customization survives by default
 * - Key absent: token appended
 */
func EnsureToken(tokens []string, token string, overwrite bool) ([]string, bool) {
	key := TokenKey(token)
	for i, existing := range tokens {
		if TokenKey(existing) != key {
			continue
		}
		if existing == token {
			return tokens, false
		}
		if !overwrite {
			return tokens, false
		}
		out := make([]string, len(tokens))
		copy(out, tokens)
		out[i] = token
		return out, true
	}
	out := make([]string, len(tokens), len(tokens)+1)
	copy(out, tokens)
	return append(out, token), true
}

// RemoveKey drops every token whose key matches.
func RemoveKey(tokens []string, key string) ([]string, bool) {
	out := tokens[:0:0]
	changed := false
	for _, existing := range tokens {
		if TokenKey(existing) == key {
			changed = true
			continue
		}
		out = append(out, existing)
	}
	if !changed {
		return tokens, false
	}
	return out, true
}

// HasToken reports whether the exact token is present.
func HasToken(tokens []string, token string) bool {
	for _, existing := range tokens {
		if existing == token {
			return true
		}
	}
	return false
}
