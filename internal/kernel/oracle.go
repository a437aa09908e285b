package kernel

import (
	"fmt"
	"strconv"
	"strings"

	"gz302-agent/internal/models"
)

// Requirement names. Every manager refers to workarounds by these handles
// and asks the oracle whether they still matter; no manager carries its own
// kernel version numbers.
const (
	ReqPstateGuidedParam      = "pstate-guided-param"
	ReqTabletModeDaemon       = "tablet-mode-daemon"
	ReqTouchpadForceEnum      = "touchpad-force-enum"
	ReqTouchpadReloadService  = "touchpad-reload-service"
	ReqWifiASPMDisable        = "wifi-aspm-disable"
	ReqGpuFeatureMask         = "gpu-feature-mask"
	ReqAudioHDAQuirk          = "audio-hda-quirk"
	ReqAudioFirmwareLink      = "audio-firmware-link"
	ReqTouchpadOptionFile     = "touchpad-option-file"
	ReqTouchpadQuirkFile      = "touchpad-quirk-file"
	ReqTouchpadPermissionRule = "touchpad-permission-rule"
	ReqCameraQuirkFile        = "camera-quirk-file"
	ReqPowerOptionFile        = "power-option-file"
	ReqThermalOptionFile      = "thermal-option-file"
	ReqSSDSchedulerRule       = "ssd-scheduler-rule"
)

// Kernel milestones where upstream absorbed a workaround. A requirement is
// required strictly below its milestone and obsolete at or above it.
const (
	MilestonePstateDefaults  = 612
	MilestoneTabletMode      = 614
	MilestoneTouchpadProbe   = 616
	MilestoneWifiASPM        = 617
	MilestoneGpuPowerplay    = 620
)

// thresholds maps each gated requirement to its obsolescence milestone.
// Requirements absent from this map are not kernel-version-gated: they stay
// required for as long as the matching hardware is present.
var thresholds = map[string]int{
	ReqPstateGuidedParam:     MilestonePstateDefaults,
	ReqTabletModeDaemon:      MilestoneTabletMode,
	ReqTouchpadForceEnum:     MilestoneTouchpadProbe,
	ReqTouchpadReloadService: MilestoneTouchpadProbe,
	ReqWifiASPMDisable:       MilestoneWifiASPM,
	ReqGpuFeatureMask:        MilestoneGpuPowerplay,
}

// ungated lists the requirements decided purely by hardware identity.
var ungated = map[string]bool{
	ReqAudioHDAQuirk:          true,
	ReqAudioFirmwareLink:      true,
	ReqTouchpadOptionFile:     true,
	ReqTouchpadQuirkFile:      true,
	ReqTouchpadPermissionRule: true,
	ReqCameraQuirkFile:        true,
	ReqPowerOptionFile:        true,
	ReqThermalOptionFile:      true,
	ReqSSDSchedulerRule:       true,
}

/**
 * Parse a kernel release string into the comparable version encoding
 * @param {string} release - Raw uname -r output, e.g. "6.14.3-arch1-1"
 * @returns {(int, error)} Returns major*100+minor or a parse error
 * @description
 * - Only the leading major.minor pair matters for compatibility decisions
 * - An unparseable release is an error; callers must abort rather than
 *   guess, since every downstream decision hangs off this number
 */
func ParseVersionNumber(release string) (int, error) {
	fields := strings.FieldsFunc(release, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	})
	if len(fields) < 2 {
		return 0, fmt.Errorf("unparseable kernel release %q", release)
	}
	major, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("unparseable kernel release %q: %v", release, err)
	}
	minor, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("unparseable kernel release %q: %v", release, err)
	}
	if major <= 0 || minor < 0 || minor > 99 {
		return 0, fmt.Errorf("kernel release %q out of range", release)
	}
	return major*100 + minor, nil
}

/**
 * Decide whether a named workaround is still needed on a given kernel
 * @param {string} name - Requirement handle (Req* constant)
 * @param {int} version - Comparable kernel version (major*100+minor)
 * @param {*models.HardwareFacts} facts - Optional detection outcome
 * @returns {models.RequirementStatus} Required, Obsolete or NotApplicable
 * @description
 * - Hardware absent always yields NotApplicable, whatever the kernel
 * - Gated requirements flip from Required to Obsolete at their milestone
 * - Ungated requirements stay Required while the hardware is present
 * - Unknown names yield NotApplicable so stale callers fail safe
 */
func Evaluate(name string, version int, facts *models.HardwareFacts) models.RequirementStatus {
	if facts != nil && !facts.Present {
		return models.StatusNotApplicable
	}
	if threshold, ok := thresholds[name]; ok {
		if version < threshold {
			return models.StatusRequired
		}
		return models.StatusObsolete
	}
	if ungated[name] {
		return models.StatusRequired
	}
	return models.StatusNotApplicable
}

// Oracle binds the parsed kernel version so callers evaluate requirements
// without re-reading version info. Pure; computed once per process.
type Oracle struct {
	release string
	version int
}

// NewOracle parses the release once. The error is fatal for the engine.
func NewOracle(release string) (*Oracle, error) {
	version, err := ParseVersionNumber(release)
	if err != nil {
		return nil, err
	}
	return &Oracle{release: release, version: version}, nil
}

// NewOracleAt builds an oracle for an already-encoded version. Used by
// tests and by status output that replays historic decisions.
func NewOracleAt(version int) *Oracle {
	return &Oracle{version: version}
}

// VersionNumber returns the memoized major*100+minor encoding.
func (o *Oracle) VersionNumber() int {
	return o.version
}

// Release returns the raw release string the oracle was built from.
func (o *Oracle) Release() string {
	return o.release
}

// Evaluate applies the fixed threshold table at the oracle's version.
func (o *Oracle) Evaluate(name string, facts *models.HardwareFacts) models.RequirementStatus {
	return Evaluate(name, o.version, facts)
}

// GatedRequirements returns the handles of every version-gated requirement,
// mainly for status reporting.
func GatedRequirements() []string {
	names := make([]string, 0, len(thresholds))
	for name := range thresholds {
		names = append(names, name)
	}
	return names
}

// Threshold returns the obsolescence milestone for a gated requirement and
// whether the requirement is gated at all.
func Threshold(name string) (int, bool) {
	t, ok := thresholds[name]
	return t, ok
}
