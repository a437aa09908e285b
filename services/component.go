package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gz302-agent/internal/env"
	"gz302-agent/internal/kernel"
	"gz302-agent/internal/logger"
	"gz302-agent/internal/models"
	"gz302-agent/internal/state"
	"gz302-agent/internal/utils"
)

/**
 * ComponentManager is the lifecycle every hardware component implements
 * @description
 * - DetectHardware is read-only and never mutates
 * - GetState inspects the live system; recorded state is a cache of
 *   intent, never a substitute for looking
 * - ApplyConfiguration asks the oracle per requirement, mutates only what
 *   differs, and is safe to call on every run
 * - Verify checks post-conditions regardless of who applied what
 */
type ComponentManager interface {
	Name() string
	DetectHardware() models.HardwareFacts
	GetState() models.ComponentStatus
	ApplyConfiguration(force bool) models.ApplyResult
	Verify() models.VerifyResult
	PrintStatus() string
}

// componentBase carries what every manager needs: the host environment,
// the oracle bound to the running kernel, and the state manager for
// records, backups and audit logging.
type componentBase struct {
	env    *env.Environment
	st     *state.Manager
	oracle *kernel.Oracle
}

// execTimeout bounds the external tools managers shell out to.
const execTimeout = 30 * time.Second

/**
 * Ensure a configuration artifact exists with the expected content
 * @param {*models.ApplyResult} res - Result to account the action in
 * @param {string} component - Component namespace for state records
 * @param {string} action - Action name
 * @param {string} path - Absolute artifact path (already root-resolved)
 * @param {string} content - Exact desired file content
 * @param {string} meta - Metadata stored with the record
 * @param {bool} force - Rewrite even when content already matches
 * @description
 * - The prior file version is backed up before the write; a failed backup
 *   skips this artifact with a warning instead of mutating unprotected
 * - State is written together with the artifact in the same step
 */
func (b *componentBase) applyFileArtifact(res *models.ApplyResult, component, action, path, content, meta string, force bool) {
	current, err := os.ReadFile(path)
	if err == nil && string(current) == content && !force {
		if !b.st.IsApplied(component, action) {
			// artifact is already right but untracked; heal the record
			b.st.MarkApplied(component, action, models.ActionRecord{
				Metadata: meta,
				Artifact: path,
			})
		}
		res.Skipped = append(res.Skipped, action)
		return
	}

	backup, err := b.st.Backup(path)
	if err != nil {
		warn := fmt.Sprintf("%s: backup failed, leaving untouched: %v", action, err)
		res.Warnings = append(res.Warnings, warn)
		b.st.Log("WARN", component, warn)
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		warn := fmt.Sprintf("%s: cannot create %s: %v", action, filepath.Dir(path), err)
		res.Warnings = append(res.Warnings, warn)
		b.st.Log("WARN", component, warn)
		return
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		warn := fmt.Sprintf("%s: cannot write %s: %v", action, path, err)
		res.Warnings = append(res.Warnings, warn)
		b.st.Log("WARN", component, warn)
		return
	}
	b.st.MarkApplied(component, action, models.ActionRecord{
		Metadata: meta,
		Artifact: path,
		Backup:   backup,
	})
	res.Applied = append(res.Applied, action)
}

/**
 * Remove an artifact belonging to an obsolete workaround
 * @description
 * - A missing artifact only heals a stale state record
 * - The file is backed up before removal so a rollback can restore it
 */
func (b *componentBase) removeFileArtifact(res *models.ApplyResult, component, action, path string) {
	if _, err := os.Lstat(path); err != nil {
		if b.st.IsApplied(component, action) {
			b.st.MarkRemoved(component, action)
		}
		res.Skipped = append(res.Skipped, action)
		return
	}

	if _, err := b.st.Backup(path); err != nil {
		warn := fmt.Sprintf("%s: backup failed, leaving obsolete artifact in place: %v", action, err)
		res.Warnings = append(res.Warnings, warn)
		b.st.Log("WARN", component, warn)
		return
	}
	if err := os.Remove(path); err != nil {
		warn := fmt.Sprintf("%s: cannot remove %s: %v", action, path, err)
		res.Warnings = append(res.Warnings, warn)
		b.st.Log("WARN", component, warn)
		return
	}
	b.st.MarkRemoved(component, action)
	res.Removed = append(res.Removed, action)
}

// moduleLoaded reports whether a kernel module shows up in /proc/modules.
// Module names use underscores there regardless of how they are spelled.
func (b *componentBase) moduleLoaded(name string) bool {
	data, err := os.ReadFile(b.env.Path("proc/modules"))
	if err != nil {
		return false
	}
	want := strings.ReplaceAll(name, "-", "_")
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == want {
			return true
		}
	}
	return false
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// describeArtifact renders one artifact line for PrintStatus output.
// Artifacts that outlived their usefulness are flagged loudly.
func describeArtifact(b *strings.Builder, a models.ArtifactStatus) {
	switch {
	case a.Obsolete:
		fmt.Fprintf(b, "artifact %s: WARNING obsolete, should be removed\n", a.Path)
	case a.Present && a.Matches:
		fmt.Fprintf(b, "artifact %s: present\n", a.Path)
	case a.Present:
		fmt.Fprintf(b, "artifact %s: present but content differs\n", a.Path)
	default:
		fmt.Fprintf(b, "artifact %s: absent\n", a.Path)
	}
}

// fileHasContent reports presence and an exact content match.
func fileHasContent(path, content string) (present bool, matches bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, false
	}
	return true, string(data) == content
}

// reloadUdevRules asks udev to pick up rule changes. Best effort and only
// meaningful on a live root.
func (b *componentBase) reloadUdevRules(component string) {
	if !b.env.Live() || !utils.CheckCommand("udevadm") {
		return
	}
	if _, err := utils.RunCommand(execTimeout, "udevadm", "control", "--reload-rules"); err != nil {
		logger.Warnf("%s: udevadm reload failed: %v", component, err)
		b.st.Log("WARN", component, fmt.Sprintf("udevadm reload failed: %v", err))
		return
	}
	utils.RunCommand(execTimeout, "udevadm", "trigger", "--subsystem-match=input")
}

// systemctl runs a service-manager action on a live root, logging failures
// as warnings. Provisioned units still activate on the next boot, so a
// missing or failing systemctl never fails the run.
func (b *componentBase) systemctl(component string, args ...string) {
	if !b.env.Live() || !utils.CheckCommand("systemctl") {
		return
	}
	if _, err := utils.RunCommand(execTimeout, "systemctl", args...); err != nil {
		msg := fmt.Sprintf("systemctl %s failed: %v", strings.Join(args, " "), err)
		logger.Warnf("%s: %s", component, msg)
		b.st.Log("WARN", component, msg)
	}
}
