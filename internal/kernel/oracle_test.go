package kernel

import (
	"testing"

	"gz302-agent/internal/models"
)

func TestParseVersionNumber(t *testing.T) {
	cases := []struct {
		release string
		want    int
		wantErr bool
	}{
		{"6.14.3-arch1-1", 614, false},
		{"6.12.0", 612, false},
		{"6.17-rc2", 617, false},
		{"6.8.9-300.fc40.x86_64", 608, false},
		{"5.15.0-105-generic", 515, false},
		{"garbage", 0, true},
		{"", 0, true},
		{"6", 0, true},
		{"x.y.z", 0, true},
	}

	for _, c := range cases {
		got, err := ParseVersionNumber(c.release)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseVersionNumber(%q): expected error, got %d", c.release, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseVersionNumber(%q): unexpected error: %v", c.release, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseVersionNumber(%q) = %d, want %d", c.release, got, c.want)
		}
	}
}

/**
 * Verify the threshold table gates every requirement in both directions
 * @description
 * - For each gated requirement, versions strictly below the milestone must
 *   report required and versions at or above must report obsolete
 */
func TestEvaluateGating(t *testing.T) {
	present := &models.HardwareFacts{Present: true}

	for _, name := range GatedRequirements() {
		threshold, ok := Threshold(name)
		if !ok {
			t.Fatalf("requirement %q reported gated but has no threshold", name)
		}
		for _, below := range []int{threshold - 1, threshold - 5, 600} {
			if below < 600 {
				continue
			}
			if got := Evaluate(name, below, present); got != models.StatusRequired {
				t.Errorf("%s at %d = %v, want required", name, below, got)
			}
		}
		for _, above := range []int{threshold, threshold + 1, 700} {
			if got := Evaluate(name, above, present); got != models.StatusObsolete {
				t.Errorf("%s at %d = %v, want obsolete", name, above, got)
			}
		}
	}
}

func TestEvaluateUngated(t *testing.T) {
	present := &models.HardwareFacts{Present: true}

	// Audio quirks track a missing upstream ID mapping, not a kernel
	// regression, so no version ever obsoletes them.
	for _, v := range []int{612, 614, 618, 620, 700} {
		if got := Evaluate(ReqAudioHDAQuirk, v, present); got != models.StatusRequired {
			t.Errorf("audio quirk at %d = %v, want required", v, got)
		}
	}
}

func TestEvaluateHardwareAbsent(t *testing.T) {
	absent := &models.HardwareFacts{Present: false}

	if got := Evaluate(ReqWifiASPMDisable, 614, absent); got != models.StatusNotApplicable {
		t.Errorf("absent hardware = %v, want not-applicable", got)
	}
	if got := Evaluate(ReqAudioHDAQuirk, 614, absent); got != models.StatusNotApplicable {
		t.Errorf("absent hardware ungated = %v, want not-applicable", got)
	}
}

func TestEvaluateUnknownRequirement(t *testing.T) {
	if got := Evaluate("no-such-fix", 614, nil); got != models.StatusNotApplicable {
		t.Errorf("unknown requirement = %v, want not-applicable", got)
	}
}

func TestNewOracle(t *testing.T) {
	o, err := NewOracle("6.14.3-arch1-1")
	if err != nil {
		t.Fatalf("NewOracle failed: %v", err)
	}
	if o.VersionNumber() != 614 {
		t.Errorf("VersionNumber = %d, want 614", o.VersionNumber())
	}
	if o.Evaluate(ReqWifiASPMDisable, nil) != models.StatusRequired {
		t.Error("wifi ASPM workaround should still be required on 6.14")
	}

	if _, err := NewOracle("not-a-kernel"); err == nil {
		t.Error("expected error for unparseable release")
	}
}
