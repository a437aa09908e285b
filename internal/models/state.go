package models

import (
	"time"
)

// ActionRecord is the persisted state for one (component, action) pair.
// An applied record is a promise that the matching on-disk artifact exists;
// drift between the two is surfaced by Verify, not hidden by the record.
type ActionRecord struct {
	Applied   bool      `json:"applied"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  string    `json:"metadata,omitempty"`
	Artifact  string    `json:"artifact,omitempty"`
	Backup    string    `json:"backup,omitempty"`
}

// ArtifactStatus describes one configuration artifact as found on the live
// system during GetState.
type ArtifactStatus struct {
	Path     string `json:"path"`
	Present  bool   `json:"present"`
	Matches  bool   `json:"matches"`
	Obsolete bool   `json:"obsolete"`
}

/**
 * Live snapshot of one hardware component
 * @property {string} component - Component name (network/gpu/input/audio)
 * @property {HardwareFacts} hardware - Detection outcome
 * @property {bool} driverLoaded - Whether the kernel driver is currently loaded
 * @property {[]ArtifactStatus} artifacts - Known configuration artifacts
 */
type ComponentStatus struct {
	Component    string           `json:"component"`
	Hardware     HardwareFacts    `json:"hardware"`
	DriverLoaded bool             `json:"driverLoaded"`
	Artifacts    []ArtifactStatus `json:"artifacts"`
}

// ApplyResult aggregates what one ApplyConfiguration pass did.
type ApplyResult struct {
	Component string   `json:"component"`
	Applied   []string `json:"applied"`
	Removed   []string `json:"removed"`
	Skipped   []string `json:"skipped"`
	Warnings  []string `json:"warnings"`
}

// Changed reports whether the pass mutated anything.
func (r ApplyResult) Changed() bool {
	return len(r.Applied) > 0 || len(r.Removed) > 0
}

// VerifyResult carries post-condition findings for one component. Findings
// are warnings for the operator; they never roll anything back.
type VerifyResult struct {
	Component string   `json:"component"`
	OK        bool     `json:"ok"`
	Findings  []string `json:"findings"`
}

/**
 * Outcome of a whole reconciliation run
 * @property {time.Time} startTime - When the run began
 * @property {string} kernelRelease - Raw uname release string
 * @property {int} kernelVersion - Comparable major*100+minor encoding
 * @property {string} bootloader - Detected bootloader kind
 * @property {[]ApplyResult} applies - Per component apply outcomes
 * @property {[]VerifyResult} verifies - Per component verification outcomes
 * @property {[]string} fatal - Errors that aborted part of the run
 */
type RunSummary struct {
	StartTime     time.Time      `json:"startTime"`
	KernelRelease string         `json:"kernelRelease"`
	KernelVersion int            `json:"kernelVersion"`
	Bootloader    string         `json:"bootloader"`
	Applies       []ApplyResult  `json:"applies"`
	Verifies      []VerifyResult `json:"verifies"`
	Fatal         []string       `json:"fatal,omitempty"`
}

// Clean reports whether the run finished with nothing for the operator to
// look at: no fatal errors and no verification findings.
func (s RunSummary) Clean() bool {
	if len(s.Fatal) > 0 {
		return false
	}
	for _, v := range s.Verifies {
		if !v.OK {
			return false
		}
	}
	return true
}
