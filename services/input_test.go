package services

import (
	"os"
	"testing"

	"gz302-agent/internal/kernel"
)

func TestInputDetectHardware(t *testing.T) {
	e, st, oracle := testWorld(t, 614)
	m := NewInputManager(e, st, oracle)

	if facts := m.DetectHardware(); facts.Present {
		t.Fatal("detected touchpad on empty root")
	}

	touchpadPresent(t, e)
	facts := m.DetectHardware()
	if !facts.Present {
		t.Fatal("touchpad not detected")
	}
	if facts.Identity != "ASUS TouchPad" {
		t.Errorf("identity = %q", facts.Identity)
	}
}

func TestInputApplyOldKernel(t *testing.T) {
	e, st, oracle := testWorld(t, 614)
	touchpadPresent(t, e)

	m := NewInputManager(e, st, oracle)
	res := m.ApplyConfiguration(false)

	// below 6.16 everything lands except the tablet daemon (gone at 6.14)
	for _, rel := range []string{touchpadOptionPath, touchpadQuirkPath, touchpadPermPath, touchpadEnumPath, reloadUnitPath} {
		if fileAbsent(t, e.Path(rel)) {
			t.Errorf("%s not written", rel)
		}
	}
	if !fileAbsent(t, e.Path(tabletUnitPath)) {
		t.Error("tablet daemon written at its own milestone")
	}

	// the reload unit gets its wants symlink
	target, err := os.Readlink(e.Path(reloadWantsPath))
	if err != nil {
		t.Fatalf("wants symlink: %v", err)
	}
	if target != "/"+reloadUnitPath {
		t.Errorf("wants symlink -> %q", target)
	}

	if res.Changed() == false {
		t.Error("first run reported no changes")
	}
	res = m.ApplyConfiguration(false)
	if res.Changed() {
		t.Errorf("second run changed something: applied=%v removed=%v", res.Applied, res.Removed)
	}
}

func TestInputTabletDaemonBelowMilestone(t *testing.T) {
	e, st, _ := testWorld(t, 612)
	touchpadPresent(t, e)

	m := NewInputManager(e, st, kernel.NewOracleAt(612))
	m.ApplyConfiguration(false)

	if fileAbsent(t, e.Path(tabletUnitPath)) {
		t.Fatal("tablet daemon unit not written below 6.14")
	}
	if fileAbsent(t, e.Path(tabletScriptPath)) {
		t.Fatal("tablet helper script not written")
	}
	info, err := os.Stat(e.Path(tabletScriptPath))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0111 == 0 {
		t.Error("helper script not executable")
	}
	if _, err := os.Readlink(e.Path(tabletWantsPath)); err != nil {
		t.Errorf("tablet wants symlink: %v", err)
	}
}

func TestInputUpgradeRemovesGatedArtifacts(t *testing.T) {
	e, st, _ := testWorld(t, 612)
	touchpadPresent(t, e)

	old := NewInputManager(e, st, kernel.NewOracleAt(612))
	old.ApplyConfiguration(false)

	upgraded := NewInputManager(e, st, kernel.NewOracleAt(618))
	res := upgraded.ApplyConfiguration(false)

	// gated artifacts go away
	for _, rel := range []string{touchpadEnumPath, reloadUnitPath, tabletUnitPath, tabletScriptPath} {
		if !fileAbsent(t, e.Path(rel)) {
			t.Errorf("%s survived the upgrade", rel)
		}
	}
	if !fileAbsent(t, e.Path(reloadWantsPath)) {
		t.Error("reload wants symlink survived")
	}
	if !fileAbsent(t, e.Path(tabletWantsPath)) {
		t.Error("tablet wants symlink survived")
	}

	// ungated artifacts stay put
	for _, rel := range []string{touchpadOptionPath, touchpadQuirkPath, touchpadPermPath} {
		if fileAbsent(t, e.Path(rel)) {
			t.Errorf("%s removed although the hardware is unchanged", rel)
		}
	}
	if len(res.Removed) == 0 {
		t.Error("upgrade run reported no removals")
	}

	// steady state afterwards
	res = upgraded.ApplyConfiguration(false)
	if res.Changed() {
		t.Errorf("post-upgrade run changed something: %+v", res)
	}
}

func TestInputVerifyDirections(t *testing.T) {
	e, st, _ := testWorld(t, 614)
	touchpadPresent(t, e)
	writeFixture(t, e, "proc/modules", "hid_asus 28672 0 - Live 0x0000000000000000\n")

	m := NewInputManager(e, st, kernel.NewOracleAt(614))
	if ver := m.Verify(); ver.OK {
		t.Error("missing required artifacts not flagged")
	}

	m.ApplyConfiguration(false)
	if ver := m.Verify(); !ver.OK {
		t.Errorf("clean state flagged: %v", ver.Findings)
	}

	// stale forced-enum rule on a new kernel is a finding
	stale := NewInputManager(e, st, kernel.NewOracleAt(618))
	if ver := stale.Verify(); ver.OK {
		t.Error("obsolete artifacts not flagged")
	}
}
