package services

import (
	"os"
	"testing"

	"gz302-agent/internal/kernel"
)

func TestPlatformDetectHardware(t *testing.T) {
	e, st, oracle := testWorld(t, 614)
	m := NewPlatformManager(e, st, oracle)

	if facts := m.DetectHardware(); facts.Present {
		t.Fatal("detected board on empty root")
	}

	writeFixture(t, e, dmiProductPath, "ROG Flow Z13 GZ302EA\n")
	facts := m.DetectHardware()
	if !facts.Present || facts.Identity != "ROG Flow Z13 GZ302EA" {
		t.Fatalf("facts = %+v", facts)
	}

	// a different board keeps the platform fixes inactive
	writeFixture(t, e, dmiProductPath, "ThinkPad X1 Carbon\n")
	if facts := m.DetectHardware(); facts.Present {
		t.Error("foreign board detected as GZ302")
	}
}

func TestPlatformApplyAllArtifacts(t *testing.T) {
	e, st, oracle := testWorld(t, 614)
	writeFixture(t, e, dmiProductPath, "ROG Flow Z13 GZ302EA\n")

	m := NewPlatformManager(e, st, oracle)
	res := m.ApplyConfiguration(false)
	if len(res.Applied) != 4 {
		t.Fatalf("applied = %v, warnings = %v", res.Applied, res.Warnings)
	}
	for _, rel := range []string{cameraQuirkPath, powerOptionPath, thermalOptionPath, ssdSchedulerPath} {
		if fileAbsent(t, e.Path(rel)) {
			t.Errorf("%s not written", rel)
		}
	}
	if got := readFile(t, e.Path(cameraQuirkPath)); got != cameraQuirkBody {
		t.Errorf("camera quirk file = %q", got)
	}

	// the quirks survive every kernel; no upgrade ever removes them
	upgraded := NewPlatformManager(e, st, kernel.NewOracleAt(700))
	res = upgraded.ApplyConfiguration(false)
	if res.Changed() {
		t.Errorf("kernel upgrade changed platform artifacts: %+v", res)
	}

	res = m.ApplyConfiguration(false)
	if res.Changed() {
		t.Errorf("second run changed something: %+v", res)
	}
}

func TestPlatformForeignBoardUntouched(t *testing.T) {
	e, st, oracle := testWorld(t, 614)
	writeFixture(t, e, dmiProductPath, "ThinkPad X1 Carbon\n")

	m := NewPlatformManager(e, st, oracle)
	res := m.ApplyConfiguration(false)
	if res.Changed() || len(res.Skipped) != 0 {
		t.Errorf("foreign board still acted: %+v", res)
	}
	if !fileAbsent(t, e.Path(cameraQuirkPath)) {
		t.Error("camera quirk written for foreign board")
	}
	if ver := m.Verify(); !ver.OK {
		t.Errorf("foreign board flagged: %v", ver.Findings)
	}
}

func TestPlatformVerifyFindsDrift(t *testing.T) {
	e, st, oracle := testWorld(t, 614)
	writeFixture(t, e, dmiProductPath, "ROG Flow Z13 GZ302EA\n")

	m := NewPlatformManager(e, st, oracle)
	if ver := m.Verify(); ver.OK {
		t.Error("missing required artifacts not flagged")
	}

	m.ApplyConfiguration(false)
	if ver := m.Verify(); !ver.OK {
		t.Errorf("clean state flagged: %v", ver.Findings)
	}

	// an externally edited rule file is drift
	if err := os.WriteFile(e.Path(ssdSchedulerPath), []byte("# emptied\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if ver := m.Verify(); ver.OK {
		t.Error("altered scheduler rules not flagged")
	}
}
