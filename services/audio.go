package services

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"gz302-agent/internal/env"
	"gz302-agent/internal/kernel"
	"gz302-agent/internal/logger"
	"gz302-agent/internal/models"
	"gz302-agent/internal/state"
)

const (
	audioComponent = "audio"

	audioModule     = "snd_hda_intel"
	audioQuirkPath  = "etc/modprobe.d/asus-audio.conf"
	audioCardDir    = "sys/class/sound/card0/device"
	audioFirmware   = "lib/firmware"
	quirkTableShare = "usr/share/gz302/audio_quirks.yaml"
)

//go:embed audio_quirks.yaml
var defaultQuirkTable []byte

// firmwareLink names one vendor-specific firmware alias pointing at the
// generic file the distro firmware package ships.
type firmwareLink struct {
	Link   string `yaml:"link"`
	Target string `yaml:"target"`
}

// audioQuirk is one known sound card identity and its configuration.
type audioQuirk struct {
	Subsystem     string         `yaml:"subsystem"`
	Name          string         `yaml:"name"`
	Model         string         `yaml:"model"`
	EnableMSI     bool           `yaml:"enable_msi"`
	FirmwareLinks []firmwareLink `yaml:"firmware_links"`
}

type quirkTable struct {
	Cards []audioQuirk `yaml:"cards"`
}

// AudioManager reconciles HDA codec options and Cirrus amp firmware links.
// Everything here is keyed to the card's PCI subsystem identity, never to
// the kernel version: a codec quirk does not age out with releases.
type AudioManager struct {
	componentBase
	table quirkTable
}

/**
 * Build the audio manager, loading the quirk table
 * @description
 * - The embedded table is the default; a copy under the share directory
 *   replaces it wholesale so new identities ship without a rebuild
 * - An unreadable override falls back to the embedded table with a warning
 */
func NewAudioManager(e *env.Environment, st *state.Manager, oracle *kernel.Oracle) *AudioManager {
	m := &AudioManager{componentBase: componentBase{env: e, st: st, oracle: oracle}}

	raw := defaultQuirkTable
	if data, err := os.ReadFile(e.Path(quirkTableShare)); err == nil {
		raw = data
	}
	if err := yaml.Unmarshal(raw, &m.table); err != nil {
		logger.Warnf("audio: quirk table unreadable, using built-in defaults: %v", err)
		yaml.Unmarshal(defaultQuirkTable, &m.table)
	}
	return m
}

func (m *AudioManager) Name() string { return audioComponent }

/**
 * Read the sound card's PCI subsystem identity from sysfs
 * @returns {models.HardwareFacts} SubsystemID in vendor:device form
 * @description
 * - Present means a card exists at all; whether its identity is known to
 *   the quirk table is decided separately at apply time
 */
func (m *AudioManager) DetectHardware() models.HardwareFacts {
	vendor, errV := os.ReadFile(m.env.Path(audioCardDir + "/subsystem_vendor"))
	device, errD := os.ReadFile(m.env.Path(audioCardDir + "/subsystem_device"))
	if errV != nil || errD != nil {
		return models.HardwareFacts{}
	}
	id := trimHex(string(vendor)) + ":" + trimHex(string(device))
	facts := models.HardwareFacts{Present: true, Identity: "HDA sound card " + id, SubsystemID: id}
	if q := m.lookup(id); q != nil && q.Name != "" {
		facts.Identity = q.Name
	}
	return facts
}

func trimHex(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "0x")
}

// lookup finds the quirk entry for a subsystem identity, nil when unknown.
func (m *AudioManager) lookup(subsystem string) *audioQuirk {
	for i := range m.table.Cards {
		if strings.EqualFold(m.table.Cards[i].Subsystem, subsystem) {
			return &m.table.Cards[i]
		}
	}
	return nil
}

// hdaQuirkBody renders the modprobe options file for one quirk entry.
func hdaQuirkBody(q *audioQuirk) string {
	var b strings.Builder
	b.WriteString("# ASUS ROG Flow Z13 GZ302 audio fixes\n")
	fmt.Fprintf(&b, "options snd-hda-intel model=%s\n", q.Model)
	if q.EnableMSI {
		b.WriteString("options snd-hda-intel enable_msi=1\n")
	}
	return b.String()
}

func linkAction(l firmwareLink) string {
	return kernel.ReqAudioFirmwareLink + "-" + strings.ReplaceAll(filepath.Base(l.Link), "/", "_")
}

func (m *AudioManager) GetState() models.ComponentStatus {
	facts := m.DetectHardware()
	status := models.ComponentStatus{
		Component:    audioComponent,
		Hardware:     facts,
		DriverLoaded: m.moduleLoaded(audioModule),
	}

	quirk := m.lookup(facts.SubsystemID)
	if quirk == nil {
		return status
	}

	path := m.env.Path(audioQuirkPath)
	present, matches := fileHasContent(path, hdaQuirkBody(quirk))
	status.Artifacts = append(status.Artifacts, models.ArtifactStatus{
		Path:    path,
		Present: present,
		Matches: matches,
	})
	for _, l := range quirk.FirmwareLinks {
		link := m.env.Path(filepath.Join(audioFirmware, l.Link))
		target, err := os.Readlink(link)
		status.Artifacts = append(status.Artifacts, models.ArtifactStatus{
			Path:    link,
			Present: err == nil,
			Matches: err == nil && target == l.Target,
		})
	}
	return status
}

/**
 * Reconcile HDA options and firmware links for a recognized card
 * @param {bool} force - Rewrite artifacts even when they already match
 * @returns {models.ApplyResult} What changed, what was skipped, warnings
 * @description
 * - A card whose identity is not in the quirk table is left strictly
 *   alone; quirks for one machine can break the codec on another
 * - Firmware links whose target file is missing are skipped with a
 *   warning pointing at the distro firmware package
 */
func (m *AudioManager) ApplyConfiguration(force bool) models.ApplyResult {
	res := models.ApplyResult{Component: audioComponent}
	facts := m.DetectHardware()

	quirk := m.lookup(facts.SubsystemID)
	reqFacts := facts
	reqFacts.Present = facts.Present && quirk != nil

	if m.oracle.Evaluate(kernel.ReqAudioHDAQuirk, &reqFacts) == models.StatusRequired {
		m.applyFileArtifact(&res, audioComponent, kernel.ReqAudioHDAQuirk,
			m.env.Path(audioQuirkPath), hdaQuirkBody(quirk),
			"snd-hda-intel quirk for "+quirk.Subsystem, force)
	}

	if m.oracle.Evaluate(kernel.ReqAudioFirmwareLink, &reqFacts) == models.StatusRequired {
		for _, l := range quirk.FirmwareLinks {
			m.applyFirmwareLink(&res, l)
		}
	}
	return res
}

// applyFirmwareLink plants one vendor-named symlink next to the generic
// firmware file. The target is relative so the link survives bind mounts.
func (m *AudioManager) applyFirmwareLink(res *models.ApplyResult, l firmwareLink) {
	action := linkAction(l)
	link := m.env.Path(filepath.Join(audioFirmware, l.Link))
	target := m.env.Path(filepath.Join(audioFirmware, filepath.Dir(l.Link), l.Target))

	if _, err := os.Stat(target); err != nil {
		warn := fmt.Sprintf("%s: firmware target %s missing; install the firmware package", action, l.Target)
		res.Warnings = append(res.Warnings, warn)
		m.st.Log("WARN", audioComponent, warn)
		return
	}

	if existing, err := os.Readlink(link); err == nil && existing == l.Target {
		if !m.st.IsApplied(audioComponent, action) {
			m.st.MarkApplied(audioComponent, action, models.ActionRecord{
				Metadata: l.Link + " -> " + l.Target,
				Artifact: link,
			})
		}
		res.Skipped = append(res.Skipped, action)
		return
	}

	backup, err := m.st.Backup(link)
	if err != nil {
		warn := fmt.Sprintf("%s: backup failed, leaving untouched: %v", action, err)
		res.Warnings = append(res.Warnings, warn)
		m.st.Log("WARN", audioComponent, warn)
		return
	}
	if err := os.MkdirAll(filepath.Dir(link), 0755); err != nil {
		warn := fmt.Sprintf("%s: cannot create %s: %v", action, filepath.Dir(link), err)
		res.Warnings = append(res.Warnings, warn)
		m.st.Log("WARN", audioComponent, warn)
		return
	}
	os.Remove(link)
	if err := os.Symlink(l.Target, link); err != nil {
		warn := fmt.Sprintf("%s: cannot link: %v", action, err)
		res.Warnings = append(res.Warnings, warn)
		m.st.Log("WARN", audioComponent, warn)
		return
	}
	m.st.MarkApplied(audioComponent, action, models.ActionRecord{
		Metadata: l.Link + " -> " + l.Target,
		Artifact: link,
		Backup:   backup,
	})
	res.Applied = append(res.Applied, action)
}

func (m *AudioManager) Verify() models.VerifyResult {
	res := models.VerifyResult{Component: audioComponent, OK: true}
	facts := m.DetectHardware()
	quirk := m.lookup(facts.SubsystemID)
	if !facts.Present || quirk == nil {
		return res
	}

	if !m.moduleLoaded(audioModule) {
		res.OK = false
		res.Findings = append(res.Findings, "snd_hda_intel module not loaded")
	}

	path := m.env.Path(audioQuirkPath)
	if present, matches := fileHasContent(path, hdaQuirkBody(quirk)); !present || !matches {
		res.OK = false
		res.Findings = append(res.Findings, "HDA quirk options expected but missing or altered: "+path)
	}
	for _, l := range quirk.FirmwareLinks {
		link := m.env.Path(filepath.Join(audioFirmware, l.Link))
		if target, err := os.Readlink(link); err != nil || target != l.Target {
			res.OK = false
			res.Findings = append(res.Findings, "firmware link missing or wrong: "+link)
		}
	}
	return res
}

func (m *AudioManager) PrintStatus() string {
	var b strings.Builder
	status := m.GetState()

	fmt.Fprintf(&b, "=== Audio ===\n")
	if status.Hardware.Present {
		fmt.Fprintf(&b, "hardware: %s [%s] (driver loaded: %v)\n",
			status.Hardware.Identity, status.Hardware.SubsystemID, status.DriverLoaded)
		if m.lookup(status.Hardware.SubsystemID) == nil {
			b.WriteString("identity not in quirk table; leaving card untouched\n")
		}
	} else {
		b.WriteString("hardware: not detected\n")
	}
	for _, a := range status.Artifacts {
		describeArtifact(&b, a)
	}
	return b.String()
}
