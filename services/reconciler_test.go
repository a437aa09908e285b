package services

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gz302-agent/internal/bootparam"
	"gz302-agent/internal/env"
	"gz302-agent/internal/kernel"
	"gz302-agent/internal/state"
)

// fullMachine plants every hardware marker of a GZ302 plus a GRUB install.
func fullMachine(t *testing.T, e *env.Environment) {
	t.Helper()
	wifiPresent(t, e)
	gpuPresent(t, e)
	touchpadPresent(t, e)
	audioPresent(t, e, "0x1043", "0x1f92")
	writeFixture(t, e, dmiProductPath, "ROG Flow Z13 GZ302EA\n")
	writeFixture(t, e, "lib/firmware/cirrus/cs35l41-dsp1-misc.wmfw", "wmfw")
	writeFixture(t, e, "lib/firmware/cirrus/cs35l41-dsp1-misc.bin", "bin")
	writeFixture(t, e, "etc/default/grub", "GRUB_TIMEOUT=5\nGRUB_CMDLINE_LINUX_DEFAULT=\"quiet\"\n")
	if err := os.MkdirAll(filepath.Join(e.FSRoot, "boot/grub"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFixture(t, e, "proc/modules",
		"mt7925e 16384 0 - Live 0x0000000000000000\n"+
			"amdgpu 14929920 0 - Live 0x0000000000000000\n"+
			"hid_asus 28672 0 - Live 0x0000000000000000\n"+
			"snd_hda_intel 61440 0 - Live 0x0000000000000000\n")
}

func newTestReconciler(e *env.Environment, st *state.Manager, version int, out *bytes.Buffer) *Reconciler {
	return NewReconciler(e, st, kernel.NewOracleAt(version), bootparam.New(e, time.Second), out)
}

func TestReconcilerFreshRunOn614(t *testing.T) {
	e, st, _ := testWorld(t, 614)
	fullMachine(t, e)

	var out bytes.Buffer
	r := newTestReconciler(e, st, 614, &out)
	summary := r.Run(false, "")

	if !summary.Clean() {
		t.Fatalf("fresh run not clean: fatal=%v verifies=%+v", summary.Fatal, summary.Verifies)
	}

	// on 6.14: wifi workaround, gpu feature mask, touchpad files and the
	// reload service land; pstate param and tablet daemon are already over
	for _, rel := range []string{
		wifiOptionsPath, gpuOptionsPath,
		touchpadOptionPath, touchpadQuirkPath, touchpadPermPath,
		touchpadEnumPath, reloadUnitPath, audioQuirkPath,
		cameraQuirkPath, powerOptionPath, thermalOptionPath, ssdSchedulerPath,
	} {
		if fileAbsent(t, e.Path(rel)) {
			t.Errorf("%s not written", rel)
		}
	}
	if !fileAbsent(t, e.Path(tabletUnitPath)) {
		t.Error("tablet daemon written at 6.14")
	}
	if data := readFile(t, e.Path("etc/default/grub")); strings.Contains(data, "amd_pstate") {
		t.Errorf("pstate parameter planted at 6.14:\n%s", data)
	}
	if !strings.Contains(out.String(), "applied") {
		t.Errorf("no per-step output:\n%s", out.String())
	}
}

func TestReconcilerUpgradeTo618(t *testing.T) {
	e, st, _ := testWorld(t, 614)
	fullMachine(t, e)

	var first bytes.Buffer
	newTestReconciler(e, st, 614, &first).Run(false, "")

	var out bytes.Buffer
	summary := newTestReconciler(e, st, 618, &out).Run(false, "")
	if !summary.Clean() {
		t.Fatalf("upgrade run not clean: %+v", summary.Verifies)
	}

	// over the 6.16 and 6.17 milestones these go away
	for _, rel := range []string{wifiOptionsPath, touchpadEnumPath, reloadUnitPath} {
		if !fileAbsent(t, e.Path(rel)) {
			t.Errorf("%s survived the upgrade to 6.18", rel)
		}
	}
	// these are still due on 6.18
	for _, rel := range []string{gpuOptionsPath, touchpadOptionPath, audioQuirkPath, cameraQuirkPath, ssdSchedulerPath} {
		if fileAbsent(t, e.Path(rel)) {
			t.Errorf("%s removed by the upgrade", rel)
		}
	}

	removed := 0
	for _, a := range summary.Applies {
		removed += len(a.Removed)
	}
	if removed == 0 {
		t.Error("upgrade run removed nothing")
	}
}

func TestReconcilerIdempotence(t *testing.T) {
	e, st, _ := testWorld(t, 614)
	fullMachine(t, e)

	var out bytes.Buffer
	newTestReconciler(e, st, 614, &out).Run(false, "")

	summary := newTestReconciler(e, st, 614, &out).Run(false, "")
	for _, a := range summary.Applies {
		if a.Changed() {
			t.Errorf("[%s] second run changed: applied=%v removed=%v", a.Component, a.Applied, a.Removed)
		}
	}
	if !summary.Clean() {
		t.Errorf("second run not clean: %+v", summary.Verifies)
	}
}

func TestReconcilerSingleComponent(t *testing.T) {
	e, st, _ := testWorld(t, 614)
	fullMachine(t, e)

	var out bytes.Buffer
	summary := newTestReconciler(e, st, 614, &out).Run(false, "network")
	if len(summary.Applies) != 1 || summary.Applies[0].Component != "network" {
		t.Fatalf("applies = %+v", summary.Applies)
	}
	if fileAbsent(t, e.Path(wifiOptionsPath)) {
		t.Error("network artifact not written")
	}
	if !fileAbsent(t, e.Path(gpuOptionsPath)) {
		t.Error("other components ran despite the restriction")
	}

	bad := newTestReconciler(e, st, 614, &out).Run(false, "nonsense")
	if bad.Clean() || len(bad.Fatal) == 0 {
		t.Error("unknown component name not fatal")
	}
}

func TestReconcilerAbsentHardwareSkipped(t *testing.T) {
	e, st, _ := testWorld(t, 614)
	// nothing planted at all

	var out bytes.Buffer
	summary := newTestReconciler(e, st, 614, &out).Run(false, "")
	if !summary.Clean() {
		t.Fatalf("empty machine not clean: %+v", summary.Verifies)
	}
	for _, a := range summary.Applies {
		if a.Changed() {
			t.Errorf("[%s] acted on absent hardware", a.Component)
		}
	}
}

func TestWriteRunMetrics(t *testing.T) {
	e, st, _ := testWorld(t, 614)
	fullMachine(t, e)

	var out bytes.Buffer
	summary := newTestReconciler(e, st, 614, &out).Run(false, "")

	dir := filepath.Join(e.FSRoot, "var/lib/gz302/metrics")
	if err := WriteRunMetrics(dir, summary); err != nil {
		t.Fatal(err)
	}
	data := readFile(t, filepath.Join(dir, metricsFile))
	for _, want := range []string{
		"gz302_actions{",
		`kind="applied"`,
		"gz302_run_clean 1",
		"gz302_last_run_timestamp_seconds",
		"gz302_run_info{",
	} {
		if !strings.Contains(data, want) {
			t.Errorf("metrics output missing %q:\n%s", want, data)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, metricsFile+".tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}
