package services

import (
	"fmt"
	"os"
	"strings"

	"gz302-agent/internal/env"
	"gz302-agent/internal/kernel"
	"gz302-agent/internal/models"
	"gz302-agent/internal/state"
)

const (
	platformComponent = "platform"

	dmiProductPath = "sys/class/dmi/id/product_name"

	cameraQuirkPath = "etc/modprobe.d/asus-camera.conf"
	cameraQuirkBody = "# ASUS ROG Flow Z13 GZ302 camera fixes\n" +
		"options uvcvideo nodrop=1\n" +
		"options uvcvideo quirks=512\n"

	powerOptionPath = "etc/modprobe.d/asus-power.conf"
	powerOptionBody = "# Power management for ASUS GZ302\n" +
		"options processor ignore_ppc=1\n"

	thermalOptionPath = "etc/modprobe.d/asus-thermal.conf"
	thermalOptionBody = "# Thermal management for GZ302\n" +
		"options acpi_thermal polling_frequency=3\n"

	ssdSchedulerPath = "etc/udev/rules.d/60-ioschedulers.rules"
	ssdSchedulerBody = "# NVMe SSD optimizations for better performance\n" +
		"ACTION==\"add|change\", KERNEL==\"nvme[0-9]*n[0-9]*\", ATTR{queue/scheduler}=\"none\"\n" +
		"# SSDs work best with 'mq-deadline' or 'none'\n" +
		"ACTION==\"add|change\", KERNEL==\"sd[a-z]\", ATTR{queue/rotational}==\"0\", ATTR{queue/scheduler}=\"mq-deadline\"\n" +
		"# Traditional HDDs work best with 'bfq'\n" +
		"ACTION==\"add|change\", KERNEL==\"sd[a-z]\", ATTR{queue/rotational}==\"1\", ATTR{queue/scheduler}=\"bfq\"\n"
)

// PlatformManager reconciles the chassis-wide fixes that belong to the
// machine rather than to one device: camera, power, thermal driver options
// and the storage I/O scheduler rules. All of them are keyed to the DMI
// product identity and none age out with kernel releases.
type PlatformManager struct {
	componentBase
}

func NewPlatformManager(e *env.Environment, st *state.Manager, oracle *kernel.Oracle) *PlatformManager {
	return &PlatformManager{componentBase{env: e, st: st, oracle: oracle}}
}

func (m *PlatformManager) Name() string { return platformComponent }

/**
 * Identify the chassis through DMI
 * @returns {models.HardwareFacts} Present only on a GZ302 board
 * @description
 * - Platform fixes are tuned to this one machine; an unrecognized product
 *   name keeps every artifact untouched
 */
func (m *PlatformManager) DetectHardware() models.HardwareFacts {
	data, err := os.ReadFile(m.env.Path(dmiProductPath))
	if err != nil {
		return models.HardwareFacts{}
	}
	product := strings.TrimSpace(string(data))
	if !strings.Contains(product, "GZ302") {
		return models.HardwareFacts{}
	}
	return models.HardwareFacts{Present: true, Identity: product}
}

func (m *PlatformManager) platformArtifacts() []struct {
	req, path, body string
} {
	return []struct{ req, path, body string }{
		{kernel.ReqCameraQuirkFile, cameraQuirkPath, cameraQuirkBody},
		{kernel.ReqPowerOptionFile, powerOptionPath, powerOptionBody},
		{kernel.ReqThermalOptionFile, thermalOptionPath, thermalOptionBody},
		{kernel.ReqSSDSchedulerRule, ssdSchedulerPath, ssdSchedulerBody},
	}
}

func (m *PlatformManager) GetState() models.ComponentStatus {
	status := models.ComponentStatus{
		Component:    platformComponent,
		Hardware:     m.DetectHardware(),
		DriverLoaded: m.moduleLoaded("uvcvideo"),
	}
	for _, a := range m.platformArtifacts() {
		path := m.env.Path(a.path)
		present, matches := fileHasContent(path, a.body)
		status.Artifacts = append(status.Artifacts, models.ArtifactStatus{
			Path:    path,
			Present: present,
			Matches: matches,
		})
	}
	return status
}

/**
 * Reconcile the chassis-wide driver options and scheduler rules
 * @param {bool} force - Rewrite artifacts even when they already match
 * @returns {models.ApplyResult} What changed, what was skipped, warnings
 * @description
 * - Everything stays for as long as the board identity matches; there is
 *   no obsolescence branch here
 * - udev is reloaded once when the scheduler rule file changed
 */
func (m *PlatformManager) ApplyConfiguration(force bool) models.ApplyResult {
	res := models.ApplyResult{Component: platformComponent}
	facts := m.DetectHardware()

	metas := map[string]string{
		kernel.ReqCameraQuirkFile:   "uvcvideo frame-drop quirks",
		kernel.ReqPowerOptionFile:   "processor ignore_ppc=1",
		kernel.ReqThermalOptionFile: "acpi_thermal polling frequency",
		kernel.ReqSSDSchedulerRule:  "block I/O scheduler rules",
	}
	for _, a := range m.platformArtifacts() {
		if m.oracle.Evaluate(a.req, &facts) != models.StatusRequired {
			continue
		}
		before := len(res.Applied)
		m.applyFileArtifact(&res, platformComponent, a.req, m.env.Path(a.path), a.body, metas[a.req], force)
		if a.req == kernel.ReqSSDSchedulerRule && len(res.Applied) > before {
			m.reloadUdevRules(platformComponent)
		}
	}
	return res
}

func (m *PlatformManager) Verify() models.VerifyResult {
	res := models.VerifyResult{Component: platformComponent, OK: true}
	facts := m.DetectHardware()
	if !facts.Present {
		return res
	}

	for _, a := range m.platformArtifacts() {
		path := m.env.Path(a.path)
		if present, matches := fileHasContent(path, a.body); !present || !matches {
			res.OK = false
			res.Findings = append(res.Findings, a.req+" expected but missing or altered: "+path)
		}
	}
	return res
}

func (m *PlatformManager) PrintStatus() string {
	var b strings.Builder
	status := m.GetState()

	fmt.Fprintf(&b, "=== Platform ===\n")
	if status.Hardware.Present {
		fmt.Fprintf(&b, "board: %s\n", status.Hardware.Identity)
	} else {
		b.WriteString("board: not a GZ302, platform fixes inactive\n")
	}
	for _, a := range status.Artifacts {
		describeArtifact(&b, a)
	}
	return b.String()
}
