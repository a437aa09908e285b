package services

import (
	"fmt"
	"strings"

	"gz302-agent/internal/env"
	"gz302-agent/internal/kernel"
	"gz302-agent/internal/models"
	"gz302-agent/internal/state"
)

const (
	networkComponent = "network"

	// MediaTek MT7925e: ASPM-induced instability until the kernel grew a
	// proper fix, after which the option must go away again
	wifiModule      = "mt7925e"
	wifiOptionsPath = "etc/modprobe.d/mt7925e.conf"
	wifiOptionsBody = "# MediaTek MT7925E stability fixes\noptions mt7925e disable_aspm=1\n"
)

// NetworkManager reconciles the Wi-Fi radio driver options.
type NetworkManager struct {
	componentBase
}

func NewNetworkManager(e *env.Environment, st *state.Manager, oracle *kernel.Oracle) *NetworkManager {
	return &NetworkManager{componentBase{env: e, st: st, oracle: oracle}}
}

func (m *NetworkManager) Name() string { return networkComponent }

/**
 * Detect the MediaTek radio
 * @returns {models.HardwareFacts} Presence and identity; read-only
 * @description
 * - A loaded mt7925e module or its sysfs module directory counts as
 *   present; the device keeps its identity even when rfkill'd
 */
func (m *NetworkManager) DetectHardware() models.HardwareFacts {
	facts := models.HardwareFacts{}
	if m.moduleLoaded(wifiModule) || dirExists(m.env.Path("sys/module/mt7925e")) {
		facts.Present = true
		facts.Identity = "MediaTek MT7925e"
	}
	return facts
}

func (m *NetworkManager) GetState() models.ComponentStatus {
	path := m.env.Path(wifiOptionsPath)
	present, matches := fileHasContent(path, wifiOptionsBody)
	status := m.oracle.Evaluate(kernel.ReqWifiASPMDisable, nil)

	return models.ComponentStatus{
		Component:    networkComponent,
		Hardware:     m.DetectHardware(),
		DriverLoaded: m.moduleLoaded(wifiModule),
		Artifacts: []models.ArtifactStatus{{
			Path:     path,
			Present:  present,
			Matches:  matches,
			Obsolete: present && status == models.StatusObsolete,
		}},
	}
}

/**
 * Reconcile the radio driver-option file against the oracle's decision
 * @param {bool} force - Rewrite the artifact even when it already matches
 * @returns {models.ApplyResult} What changed, what was skipped, warnings
 * @description
 * - Required: write the option file (backing up any prior version)
 * - Obsolete: actively delete the file so ASPM works again
 * - NotApplicable (radio absent): leave the system alone entirely
 */
func (m *NetworkManager) ApplyConfiguration(force bool) models.ApplyResult {
	res := models.ApplyResult{Component: networkComponent}
	facts := m.DetectHardware()
	path := m.env.Path(wifiOptionsPath)

	switch m.oracle.Evaluate(kernel.ReqWifiASPMDisable, &facts) {
	case models.StatusRequired:
		m.applyFileArtifact(&res, networkComponent, kernel.ReqWifiASPMDisable,
			path, wifiOptionsBody, "options mt7925e disable_aspm=1", force)
	case models.StatusObsolete:
		m.removeFileArtifact(&res, networkComponent, kernel.ReqWifiASPMDisable, path)
	}
	return res
}

/**
 * Post-condition checks for the radio
 * @returns {models.VerifyResult} ok=false when findings need attention
 * @description
 * - Runs independently of whether this process applied anything
 * - A not-yet-loaded driver right after configuration is reported as a
 *   finding; it usually resolves on the next boot
 */
func (m *NetworkManager) Verify() models.VerifyResult {
	res := models.VerifyResult{Component: networkComponent, OK: true}
	facts := m.DetectHardware()
	if !facts.Present {
		return res
	}

	if !m.moduleLoaded(wifiModule) {
		res.OK = false
		res.Findings = append(res.Findings, "mt7925e module not loaded")
	}

	path := m.env.Path(wifiOptionsPath)
	present, matches := fileHasContent(path, wifiOptionsBody)
	switch m.oracle.Evaluate(kernel.ReqWifiASPMDisable, &facts) {
	case models.StatusRequired:
		if !present || !matches {
			res.OK = false
			res.Findings = append(res.Findings, "ASPM workaround expected but missing or altered: "+path)
		}
	case models.StatusObsolete:
		if present {
			res.OK = false
			res.Findings = append(res.Findings, "obsolete ASPM workaround still present: "+path)
		}
	}
	return res
}

func (m *NetworkManager) PrintStatus() string {
	var b strings.Builder
	status := m.GetState()

	fmt.Fprintf(&b, "=== Network radio ===\n")
	if status.Hardware.Present {
		fmt.Fprintf(&b, "hardware: %s (driver loaded: %v)\n", status.Hardware.Identity, status.DriverLoaded)
	} else {
		b.WriteString("hardware: not detected\n")
	}
	for _, a := range status.Artifacts {
		describeArtifact(&b, a)
	}
	return b.String()
}
