package services

import (
	"fmt"
	"strings"

	"gz302-agent/internal/bootparam"
	"gz302-agent/internal/env"
	"gz302-agent/internal/kernel"
	"gz302-agent/internal/models"
	"gz302-agent/internal/state"
)

const (
	gpuComponent = "gpu"

	gpuModule      = "amdgpu"
	gpuOptionsPath = "etc/modprobe.d/amdgpu.conf"
	gpuOptionsBody = "# AMD GPU optimizations for GZ302\n" +
		"options amdgpu si_support=1\n" +
		"options amdgpu cik_support=1\n" +
		"options amdgpu dc=1\n" +
		"options amdgpu dpm=1\n" +
		"options amdgpu ppfeaturemask=0xffffffff\n"

	// the scheduler hint older kernels need to pick sane EPP defaults
	pstateParam    = "amd_pstate=guided"
	pstateParamKey = "amd_pstate"

	gpuFirmwareDir = "lib/firmware/amdgpu"
)

// GPUManager reconciles the integrated Radeon: a driver-option file and a
// kernel boot parameter, each on its own obsolescence schedule.
type GPUManager struct {
	componentBase
	injector *bootparam.Injector
}

func NewGPUManager(e *env.Environment, st *state.Manager, oracle *kernel.Oracle, inj *bootparam.Injector) *GPUManager {
	return &GPUManager{componentBase{env: e, st: st, oracle: oracle}, inj}
}

func (m *GPUManager) Name() string { return gpuComponent }

func (m *GPUManager) DetectHardware() models.HardwareFacts {
	facts := models.HardwareFacts{}
	if m.moduleLoaded(gpuModule) || dirExists(m.env.Path("sys/module/amdgpu")) {
		facts.Present = true
		facts.Identity = "AMD Radeon (Strix Halo iGPU)"
	}
	return facts
}

func (m *GPUManager) GetState() models.ComponentStatus {
	path := m.env.Path(gpuOptionsPath)
	present, matches := fileHasContent(path, gpuOptionsBody)
	status := m.oracle.Evaluate(kernel.ReqGpuFeatureMask, nil)

	return models.ComponentStatus{
		Component:    gpuComponent,
		Hardware:     m.DetectHardware(),
		DriverLoaded: m.moduleLoaded(gpuModule),
		Artifacts: []models.ArtifactStatus{{
			Path:     path,
			Present:  present,
			Matches:  matches,
			Obsolete: present && status == models.StatusObsolete,
		}},
	}
}

/**
 * Reconcile GPU driver options and the pstate boot parameter
 * @param {bool} force - Rewrite artifacts even when they already match
 * @returns {models.ApplyResult} What changed, what was skipped, warnings
 * @description
 * - The feature-mask file follows the usual write/remove lifecycle
 * - The boot parameter goes through the bootloader injector; on obsolete
 *   kernels it is removed only when our own record says we planted it,
 *   so a deliberate user setting survives the cleanup
 * - An undetectable bootloader degrades to a warning, never a mutation
 */
func (m *GPUManager) ApplyConfiguration(force bool) models.ApplyResult {
	res := models.ApplyResult{Component: gpuComponent}
	facts := m.DetectHardware()

	switch m.oracle.Evaluate(kernel.ReqGpuFeatureMask, &facts) {
	case models.StatusRequired:
		m.applyFileArtifact(&res, gpuComponent, kernel.ReqGpuFeatureMask,
			m.env.Path(gpuOptionsPath), gpuOptionsBody, "amdgpu ppfeaturemask workaround", force)
	case models.StatusObsolete:
		m.removeFileArtifact(&res, gpuComponent, kernel.ReqGpuFeatureMask, m.env.Path(gpuOptionsPath))
	}

	m.reconcilePstateParam(&res, &facts)
	return res
}

func (m *GPUManager) reconcilePstateParam(res *models.ApplyResult, facts *models.HardwareFacts) {
	action := kernel.ReqPstateGuidedParam

	switch m.oracle.Evaluate(action, facts) {
	case models.StatusRequired:
		changed, err := m.injector.EnsureParameter(pstateParam)
		if err != nil {
			warn := fmt.Sprintf("%s: %v", action, err)
			res.Warnings = append(res.Warnings, warn)
			m.st.Log("WARN", gpuComponent, warn)
			return
		}
		if !changed {
			if !m.st.IsApplied(gpuComponent, action) && m.paramRecordable() {
				m.st.MarkApplied(gpuComponent, action, models.ActionRecord{Metadata: pstateParam})
			}
			res.Skipped = append(res.Skipped, action)
			return
		}
		m.st.MarkApplied(gpuComponent, action, models.ActionRecord{Metadata: pstateParam})
		res.Applied = append(res.Applied, action)

	case models.StatusObsolete:
		if !m.st.IsApplied(gpuComponent, action) {
			// not ours to remove; the kernel ignores stale user params anyway
			res.Skipped = append(res.Skipped, action)
			return
		}
		changed, err := m.injector.RemoveParameter(pstateParamKey)
		if err != nil {
			warn := fmt.Sprintf("%s: %v", action, err)
			res.Warnings = append(res.Warnings, warn)
			m.st.Log("WARN", gpuComponent, warn)
			return
		}
		m.st.MarkRemoved(gpuComponent, action)
		if changed {
			res.Removed = append(res.Removed, action)
		} else {
			res.Skipped = append(res.Skipped, action)
		}
	}
}

// paramRecordable reports whether the boot config actually carries our exact
// parameter, so a heal only records what is verifiably there.
func (m *GPUManager) paramRecordable() bool {
	has, err := m.injector.HasParameter(pstateParam)
	return err == nil && has
}

/**
 * Post-condition checks for the GPU
 * @returns {models.VerifyResult} ok=false when findings need attention
 * @description
 * - Missing amdgpu firmware is reported even though this agent never
 *   installs firmware; the finding points at the distro package
 */
func (m *GPUManager) Verify() models.VerifyResult {
	res := models.VerifyResult{Component: gpuComponent, OK: true}
	facts := m.DetectHardware()
	if !facts.Present {
		return res
	}

	if !m.moduleLoaded(gpuModule) {
		res.OK = false
		res.Findings = append(res.Findings, "amdgpu module not loaded")
	}
	if !dirExists(m.env.Path(gpuFirmwareDir)) {
		res.OK = false
		res.Findings = append(res.Findings, "amdgpu firmware directory missing; install the linux-firmware package")
	}

	path := m.env.Path(gpuOptionsPath)
	present, matches := fileHasContent(path, gpuOptionsBody)
	switch m.oracle.Evaluate(kernel.ReqGpuFeatureMask, &facts) {
	case models.StatusRequired:
		if !present || !matches {
			res.OK = false
			res.Findings = append(res.Findings, "GPU feature-mask options expected but missing or altered: "+path)
		}
	case models.StatusObsolete:
		if present {
			res.OK = false
			res.Findings = append(res.Findings, "obsolete GPU feature-mask options still present: "+path)
		}
	}
	return res
}

func (m *GPUManager) PrintStatus() string {
	var b strings.Builder
	status := m.GetState()

	fmt.Fprintf(&b, "=== GPU ===\n")
	if status.Hardware.Present {
		fmt.Fprintf(&b, "hardware: %s (driver loaded: %v)\n", status.Hardware.Identity, status.DriverLoaded)
	} else {
		b.WriteString("hardware: not detected\n")
	}
	for _, a := range status.Artifacts {
		describeArtifact(&b, a)
	}
	fmt.Fprintf(&b, "bootloader: %s\n", m.injector.Kind())
	if applied := m.st.IsApplied(gpuComponent, kernel.ReqPstateGuidedParam); applied {
		fmt.Fprintf(&b, "boot parameter %s: managed\n", pstateParam)
	}
	return b.String()
}
