package services

import (
	"os"
	"strings"
	"testing"

	"gz302-agent/internal/kernel"
)

func TestNetworkApplyBelowThreshold(t *testing.T) {
	e, st, oracle := testWorld(t, 614)
	wifiPresent(t, e)

	m := NewNetworkManager(e, st, oracle)
	res := m.ApplyConfiguration(false)
	if len(res.Applied) != 1 || res.Applied[0] != kernel.ReqWifiASPMDisable {
		t.Fatalf("applied = %v", res.Applied)
	}
	if got := readFile(t, e.Path(wifiOptionsPath)); got != wifiOptionsBody {
		t.Errorf("option file = %q", got)
	}
	if !st.IsApplied(networkComponent, kernel.ReqWifiASPMDisable) {
		t.Error("state record missing after apply")
	}

	// second run must be a byte-identical no-op
	info1, _ := os.Stat(e.Path(wifiOptionsPath))
	res = m.ApplyConfiguration(false)
	if res.Changed() {
		t.Errorf("second run changed something: %+v", res)
	}
	info2, _ := os.Stat(e.Path(wifiOptionsPath))
	if info1.ModTime() != info2.ModTime() {
		t.Error("second run rewrote the artifact")
	}
}

func TestNetworkRemovesObsoleteWorkaround(t *testing.T) {
	e, st, oracle := testWorld(t, 614)
	wifiPresent(t, e)

	m := NewNetworkManager(e, st, oracle)
	m.ApplyConfiguration(false)

	// simulated kernel upgrade past the ASPM fix
	upgraded := NewNetworkManager(e, st, kernel.NewOracleAt(618))
	res := upgraded.ApplyConfiguration(false)
	if len(res.Removed) != 1 || res.Removed[0] != kernel.ReqWifiASPMDisable {
		t.Fatalf("removed = %v", res.Removed)
	}
	if !fileAbsent(t, e.Path(wifiOptionsPath)) {
		t.Error("obsolete option file still present")
	}
	if st.IsApplied(networkComponent, kernel.ReqWifiASPMDisable) {
		t.Error("state record not cleared after removal")
	}

	// a backup of the removed file must exist for rollback
	backups := st.RecentBackups(10)
	found := false
	for _, b := range backups {
		if strings.Contains(b, "mt7925e.conf") {
			found = true
		}
	}
	if !found {
		t.Errorf("no backup of removed artifact, backups: %v", backups)
	}
}

func TestNetworkHardwareAbsent(t *testing.T) {
	e, st, oracle := testWorld(t, 614)

	m := NewNetworkManager(e, st, oracle)
	if facts := m.DetectHardware(); facts.Present {
		t.Fatal("detected radio on empty root")
	}
	res := m.ApplyConfiguration(false)
	if res.Changed() || len(res.Skipped) != 0 {
		t.Errorf("absent hardware still acted: %+v", res)
	}
	if !fileAbsent(t, e.Path(wifiOptionsPath)) {
		t.Error("artifact written despite absent hardware")
	}
}

func TestNetworkHealsUntrackedArtifact(t *testing.T) {
	e, st, oracle := testWorld(t, 614)
	wifiPresent(t, e)
	writeFixture(t, e, wifiOptionsPath, wifiOptionsBody)

	m := NewNetworkManager(e, st, oracle)
	res := m.ApplyConfiguration(false)
	if res.Changed() {
		t.Errorf("matching artifact rewritten: %+v", res)
	}
	if !st.IsApplied(networkComponent, kernel.ReqWifiASPMDisable) {
		t.Error("matching untracked artifact did not heal the record")
	}
}

func TestNetworkVerifyFindsDrift(t *testing.T) {
	e, st, oracle := testWorld(t, 614)
	wifiPresent(t, e)
	writeFixture(t, e, "proc/modules", "mt7925e 16384 0 - Live 0x0000000000000000\n")

	m := NewNetworkManager(e, st, oracle)
	ver := m.Verify()
	if ver.OK {
		t.Error("missing required artifact not flagged")
	}

	m.ApplyConfiguration(false)
	ver = m.Verify()
	if !ver.OK {
		t.Errorf("clean state flagged: %v", ver.Findings)
	}

	// obsolete artifact on a new kernel is a finding until the next apply
	upgraded := NewNetworkManager(e, st, kernel.NewOracleAt(618))
	ver = upgraded.Verify()
	if ver.OK {
		t.Error("obsolete artifact not flagged")
	}
}
