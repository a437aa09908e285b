package bootparam

import (
	"errors"
	"time"

	"gz302-agent/internal/env"
	"gz302-agent/internal/logger"
	"gz302-agent/internal/models"
)

// ErrUnknownBootloader means no marker files matched; the injector refuses
// to guess at a storage format it cannot identify.
var ErrUnknownBootloader = errors.New("unknown bootloader: cannot safely modify boot configuration")

// mutator transforms command line tokens and reports whether it changed them.
type mutator func(tokens []string) ([]string, bool)

// strategy is one bootloader's storage shape: how to find it, how to edit
// its command line, and how to regenerate derived configuration.
type strategy interface {
	kind() models.BootloaderKind
	detect() bool
	mutate(fn mutator) (bool, error)
	regenerate(timeout time.Duration) error
}

/**
 * Injector owns the read/modify/write cycle of the boot configuration
 * @description
 * - The bootloader is detected once at construction by probing marker
 *   files in priority order
 * - Callers only supply tokens; whether that lands in a GRUB defaults
 *   file, a loader entry or an APPEND line is the injector's business
 * - Regeneration runs only on a live root and its failure is a warning:
 *   the parameter write already succeeded and the next regeneration
 *   trigger (a kernel update) picks it up
 */
type Injector struct {
	strat   strategy
	kindVal models.BootloaderKind
	live    bool
	timeout time.Duration
}

// New probes the environment's filesystem root and binds the matching
// strategy. An UNKNOWN result still yields a usable injector whose mutating
// calls all fail with ErrUnknownBootloader.
func New(e *env.Environment, timeout time.Duration) *Injector {
	inj := &Injector{
		kindVal: models.BootloaderUnknown,
		live:    e.Live(),
		timeout: timeout,
	}
	for _, s := range candidates(e.FSRoot) {
		if s.detect() {
			inj.strat = s
			inj.kindVal = s.kind()
			break
		}
	}
	return inj
}

// Kind returns the detected bootloader.
func (i *Injector) Kind() models.BootloaderKind {
	return i.kindVal
}

// EnsureParameter makes the token present exactly once. A key already
// present with a different value is left alone (changed=false).
func (i *Injector) EnsureParameter(token string) (bool, error) {
	return i.ensure(token, false)
}

// EnsureParameterValue is the overwriting variant: an existing value for
// the same key is replaced instead of preserved.
func (i *Injector) EnsureParameterValue(token string) (bool, error) {
	return i.ensure(token, true)
}

// HasParameter reports whether the exact token is already present. The
// probe runs through the same mutate path but never changes tokens, so no
// write occurs.
func (i *Injector) HasParameter(token string) (bool, error) {
	if i.strat == nil {
		return false, ErrUnknownBootloader
	}
	found := false
	_, err := i.strat.mutate(func(tokens []string) ([]string, bool) {
		if HasToken(tokens, token) {
			found = true
		}
		return tokens, false
	})
	return found, err
}

// RemoveParameter drops every token with the given key.
func (i *Injector) RemoveParameter(key string) (bool, error) {
	if i.strat == nil {
		return false, ErrUnknownBootloader
	}
	changed, err := i.strat.mutate(func(tokens []string) ([]string, bool) {
		return RemoveKey(tokens, key)
	})
	if err != nil || !changed {
		return changed, err
	}
	i.maybeRegenerate()
	return true, nil
}

func (i *Injector) ensure(token string, overwrite bool) (bool, error) {
	if i.strat == nil {
		return false, ErrUnknownBootloader
	}
	changed, err := i.strat.mutate(func(tokens []string) ([]string, bool) {
		return EnsureToken(tokens, token, overwrite)
	})
	if err != nil || !changed {
		return changed, err
	}
	i.maybeRegenerate()
	return true, nil
}

func (i *Injector) maybeRegenerate() {
	if !i.live {
		return
	}
	if err := i.strat.regenerate(i.timeout); err != nil {
		logger.Warnf("%s configuration updated but regeneration failed: %v (takes effect on next kernel update)", i.kindVal, err)
	}
}
