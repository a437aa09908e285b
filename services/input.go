package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gz302-agent/internal/env"
	"gz302-agent/internal/kernel"
	"gz302-agent/internal/models"
	"gz302-agent/internal/state"
)

const (
	inputComponent = "input"

	touchpadOptionPath = "etc/modprobe.d/gz302-touchpad.conf"
	touchpadOptionBody = "# ASUS ROG Flow Z13 GZ302 touchpad driver options\n" +
		"options hid_asus fnlock_default=1\n"

	touchpadQuirkPath = "etc/libinput/local-overrides.quirks"
	touchpadQuirkBody = "# ASUS ROG Flow Z13 GZ302 touchpad\n" +
		"[ASUS GZ302 Touchpad]\n" +
		"MatchUdevType=touchpad\n" +
		"MatchName=*ASUS*TouchPad*\n" +
		"AttrPressureRange=10:8\n"

	touchpadPermPath = "etc/udev/rules.d/99-gz302-touchpad-access.rules"
	touchpadPermBody = "# ASUS ROG Flow Z13 GZ302 touchpad access\n" +
		"KERNEL==\"hidraw*\", ATTRS{idVendor}==\"04f3\", MODE=\"0660\", TAG+=\"uaccess\"\n"

	touchpadEnumPath = "etc/udev/rules.d/90-asus-touchpad.rules"
	touchpadEnumBody = "# ASUS ROG Flow Z13 GZ302 touchpad fixes\n" +
		"SUBSYSTEM==\"input\", ATTRS{name}==\"ASUS TouchPad\", ENV{ID_INPUT_TOUCHPAD}=\"1\"\n" +
		"SUBSYSTEM==\"input\", ATTRS{name}==\"*ASUS*TouchPad*\", ENV{ID_INPUT_TOUCHPAD}=\"1\"\n" +
		"SUBSYSTEM==\"input\", ATTRS{name}==\"*Touchpad*\", ATTRS{id/vendor}==\"04f3\", ENV{ID_INPUT_TOUCHPAD}=\"1\"\n"

	reloadUnitName = "gz302-touchpad-reload.service"
	reloadUnitPath = "etc/systemd/system/" + reloadUnitName
	reloadUnitBody = "[Unit]\n" +
		"Description=Reload ASUS touchpad driver after resume\n" +
		"After=suspend.target\n\n" +
		"[Service]\n" +
		"Type=oneshot\n" +
		"ExecStart=/bin/sh -c 'modprobe -r hid_asus && modprobe hid_asus'\n\n" +
		"[Install]\n" +
		"WantedBy=suspend.target\n"
	reloadWantsPath = "etc/systemd/system/suspend.target.wants/" + reloadUnitName

	tabletUnitName = "gz302-tablet-mode.service"
	tabletUnitPath = "etc/systemd/system/" + tabletUnitName
	tabletUnitBody = "[Unit]\n" +
		"Description=GZ302 tablet mode switch helper\n" +
		"After=multi-user.target\n\n" +
		"[Service]\n" +
		"Type=simple\n" +
		"ExecStart=/usr/share/gz302/tablet-mode.sh\n" +
		"Restart=on-failure\n\n" +
		"[Install]\n" +
		"WantedBy=multi-user.target\n"
	tabletWantsPath = "etc/systemd/system/multi-user.target.wants/" + tabletUnitName

	tabletScriptPath = "usr/share/gz302/tablet-mode.sh"
	tabletScriptBody = "#!/bin/sh\n" +
		"# Tablet mode helper for kernels without native SW_TABLET_MODE reporting.\n" +
		"exec /usr/bin/libinput debug-events 2>/dev/null | \\\n" +
		"while read -r line; do\n" +
		"    case \"$line\" in\n" +
		"    *SWITCH_TOGGLE*tablet-mode*\"state 1\"*) logger -t gz302 \"tablet mode on\" ;;\n" +
		"    *SWITCH_TOGGLE*tablet-mode*\"state 0\"*) logger -t gz302 \"tablet mode off\" ;;\n" +
		"    esac\n" +
		"done\n"
)

// InputManager reconciles the ELAN touchpad and tablet-mode handling. It
// carries the most artifacts of the four managers: three that stay for as
// long as the hardware exists and three that age out with kernel releases.
type InputManager struct {
	componentBase
}

func NewInputManager(e *env.Environment, st *state.Manager, oracle *kernel.Oracle) *InputManager {
	return &InputManager{componentBase{env: e, st: st, oracle: oracle}}
}

func (m *InputManager) Name() string { return inputComponent }

/**
 * Detect the touchpad via the kernel's input device registry
 * @returns {models.HardwareFacts} Presence and the advertised device name
 * @description
 * - Scans /proc/bus/input/devices for an ASUS touchpad name or the ELAN
 *   vendor id 04f3; read-only
 */
func (m *InputManager) DetectHardware() models.HardwareFacts {
	data, err := os.ReadFile(m.env.Path("proc/bus/input/devices"))
	if err != nil {
		return models.HardwareFacts{}
	}
	for _, block := range strings.Split(string(data), "\n\n") {
		lower := strings.ToLower(block)
		if !strings.Contains(lower, "touchpad") {
			continue
		}
		if strings.Contains(lower, "asus") || strings.Contains(lower, "vendor=04f3") {
			facts := models.HardwareFacts{Present: true, Identity: "ELAN touchpad (04f3)"}
			for _, line := range strings.Split(block, "\n") {
				if strings.HasPrefix(line, "N: Name=") {
					facts.Identity = strings.Trim(strings.TrimPrefix(line, "N: Name="), "\"")
				}
			}
			return facts
		}
	}
	return models.HardwareFacts{}
}

// inputArtifacts pairs every artifact with the requirement that governs it.
func (m *InputManager) inputArtifacts() []struct {
	req, path, body string
} {
	return []struct{ req, path, body string }{
		{kernel.ReqTouchpadOptionFile, touchpadOptionPath, touchpadOptionBody},
		{kernel.ReqTouchpadQuirkFile, touchpadQuirkPath, touchpadQuirkBody},
		{kernel.ReqTouchpadPermissionRule, touchpadPermPath, touchpadPermBody},
		{kernel.ReqTouchpadForceEnum, touchpadEnumPath, touchpadEnumBody},
		{kernel.ReqTouchpadReloadService, reloadUnitPath, reloadUnitBody},
		{kernel.ReqTabletModeDaemon, tabletUnitPath, tabletUnitBody},
	}
}

func (m *InputManager) GetState() models.ComponentStatus {
	status := models.ComponentStatus{
		Component:    inputComponent,
		Hardware:     m.DetectHardware(),
		DriverLoaded: m.moduleLoaded("hid_asus") || m.moduleLoaded("hid_multitouch"),
	}
	for _, a := range m.inputArtifacts() {
		path := m.env.Path(a.path)
		present, matches := fileHasContent(path, a.body)
		status.Artifacts = append(status.Artifacts, models.ArtifactStatus{
			Path:     path,
			Present:  present,
			Matches:  matches,
			Obsolete: present && m.oracle.Evaluate(a.req, nil) == models.StatusObsolete,
		})
	}
	return status
}

/**
 * Reconcile every input artifact against the oracle's decisions
 * @param {bool} force - Rewrite artifacts even when they already match
 * @returns {models.ApplyResult} What changed, what was skipped, warnings
 * @description
 * - Option file, quirk file and permission rule stay while the touchpad
 *   exists; the enumeration rule, reload service and tablet-mode daemon
 *   each follow their own kernel milestone
 * - udev rules are reloaded once at the end when any rule file changed
 * - Service units get their wants symlink on apply; obsolete units are
 *   stopped and disabled before their files go away
 */
func (m *InputManager) ApplyConfiguration(force bool) models.ApplyResult {
	res := models.ApplyResult{Component: inputComponent}
	facts := m.DetectHardware()

	for _, a := range []struct{ req, path, body, meta string }{
		{kernel.ReqTouchpadOptionFile, touchpadOptionPath, touchpadOptionBody, "hid_asus driver options"},
		{kernel.ReqTouchpadQuirkFile, touchpadQuirkPath, touchpadQuirkBody, "libinput pressure quirk"},
		{kernel.ReqTouchpadPermissionRule, touchpadPermPath, touchpadPermBody, "hidraw access rule"},
	} {
		if m.oracle.Evaluate(a.req, &facts) == models.StatusRequired {
			m.applyFileArtifact(&res, inputComponent, a.req, m.env.Path(a.path), a.body, a.meta, force)
		}
	}

	switch m.oracle.Evaluate(kernel.ReqTouchpadForceEnum, &facts) {
	case models.StatusRequired:
		m.applyFileArtifact(&res, inputComponent, kernel.ReqTouchpadForceEnum,
			m.env.Path(touchpadEnumPath), touchpadEnumBody, "forced touchpad enumeration rule", force)
	case models.StatusObsolete:
		m.removeFileArtifact(&res, inputComponent, kernel.ReqTouchpadForceEnum, m.env.Path(touchpadEnumPath))
	}
	ruleChanges := len(res.Applied) + len(res.Removed)

	m.reconcileUnit(&res, &facts, kernel.ReqTouchpadReloadService,
		reloadUnitName, reloadUnitPath, reloadUnitBody, reloadWantsPath, "", "", force)
	m.reconcileUnit(&res, &facts, kernel.ReqTabletModeDaemon,
		tabletUnitName, tabletUnitPath, tabletUnitBody, tabletWantsPath,
		tabletScriptPath, tabletScriptBody, force)

	if ruleChanges > 0 {
		m.reloadUdevRules(inputComponent)
	}
	return res
}

// reconcileUnit drives one systemd unit (and an optional helper script)
// through the apply/remove lifecycle. The unit file is the tracked artifact;
// the wants symlink and script follow it.
func (m *InputManager) reconcileUnit(res *models.ApplyResult, facts *models.HardwareFacts,
	req, unitName, unitPath, unitBody, wantsPath, scriptPath, scriptBody string, force bool) {

	switch m.oracle.Evaluate(req, facts) {
	case models.StatusRequired:
		before := len(res.Applied)
		if scriptPath != "" {
			m.applyFileArtifact(res, inputComponent, req+"-script",
				m.env.Path(scriptPath), scriptBody, "helper script for "+unitName, force)
			os.Chmod(m.env.Path(scriptPath), 0755)
		}
		m.applyFileArtifact(res, inputComponent, req,
			m.env.Path(unitPath), unitBody, "systemd unit "+unitName, force)
		if err := m.ensureWantsLink(wantsPath, unitPath); err != nil {
			warn := fmt.Sprintf("%s: wants symlink: %v", req, err)
			res.Warnings = append(res.Warnings, warn)
			m.st.Log("WARN", inputComponent, warn)
		}
		if len(res.Applied) > before {
			m.systemctl(inputComponent, "daemon-reload")
			m.systemctl(inputComponent, "enable", "--now", unitName)
		}

	case models.StatusObsolete:
		m.systemctl(inputComponent, "disable", "--now", unitName)
		os.Remove(m.env.Path(wantsPath))
		m.removeFileArtifact(res, inputComponent, req, m.env.Path(unitPath))
		if scriptPath != "" {
			m.removeFileArtifact(res, inputComponent, req+"-script", m.env.Path(scriptPath))
		}
		m.systemctl(inputComponent, "daemon-reload")
	}
}

// ensureWantsLink creates the target.wants symlink systemd would create on
// enable. The link names the live unit path so it stays valid after a
// simulated root is promoted.
func (m *InputManager) ensureWantsLink(wantsRel, unitRel string) error {
	link := m.env.Path(wantsRel)
	target := "/" + unitRel
	if existing, err := os.Readlink(link); err == nil {
		if existing == target {
			return nil
		}
		os.Remove(link)
	}
	if err := os.MkdirAll(filepath.Dir(link), 0755); err != nil {
		return err
	}
	return os.Symlink(target, link)
}

func (m *InputManager) Verify() models.VerifyResult {
	res := models.VerifyResult{Component: inputComponent, OK: true}
	facts := m.DetectHardware()
	if !facts.Present {
		return res
	}

	for _, a := range m.inputArtifacts() {
		path := m.env.Path(a.path)
		present, matches := fileHasContent(path, a.body)
		switch m.oracle.Evaluate(a.req, &facts) {
		case models.StatusRequired:
			if !present || !matches {
				res.OK = false
				res.Findings = append(res.Findings, a.req+" expected but missing or altered: "+path)
			}
		case models.StatusObsolete:
			if present {
				res.OK = false
				res.Findings = append(res.Findings, "obsolete "+a.req+" still present: "+path)
			}
		}
	}
	return res
}

func (m *InputManager) PrintStatus() string {
	var b strings.Builder
	status := m.GetState()

	fmt.Fprintf(&b, "=== Input ===\n")
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
