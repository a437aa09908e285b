package bootparam

import (
	"testing"
)

func TestEnsureToken(t *testing.T) {
	cases := []struct {
		name        string
		line        string
		token       string
		overwrite   bool
		want        string
		wantChanged bool
	}{
		{"append to empty", "", "amd_pstate=guided", false, "amd_pstate=guided", true},
		{"append to existing", "quiet splash", "amd_pstate=guided", false, "quiet splash amd_pstate=guided", true},
		{"already present", "quiet amd_pstate=guided splash", "amd_pstate=guided", false, "quiet amd_pstate=guided splash", false},
		{"key with other value kept", "amd_pstate=active quiet", "amd_pstate=guided", false, "amd_pstate=active quiet", false},
		{"key with other value overwritten", "amd_pstate=active quiet", "amd_pstate=guided", true, "amd_pstate=guided quiet", true},
		{"bare key present", "nomodeset quiet", "nomodeset", false, "nomodeset quiet", false},
		{"bare key vs valued key", "iommu=pt", "iommu", false, "iommu=pt", false},
		{"prefix key does not match", "amd_pstate_epp=1", "amd_pstate=guided", false, "amd_pstate_epp=1 amd_pstate=guided", true},
	}

	for _, c := range cases {
		got, changed := EnsureToken(SplitTokens(c.line), c.token, c.overwrite)
		if JoinTokens(got) != c.want || changed != c.wantChanged {
			t.Errorf("%s: EnsureToken(%q, %q, %v) = (%q, %v), want (%q, %v)",
				c.name, c.line, c.token, c.overwrite, JoinTokens(got), changed, c.want, c.wantChanged)
		}
	}
}

func TestRemoveKey(t *testing.T) {
	cases := []struct {
		line        string
		key         string
		want        string
		wantChanged bool
	}{
		{"quiet amd_pstate=guided splash", "amd_pstate", "quiet splash", true},
		{"amd_pstate=guided amd_pstate=active", "amd_pstate", "", true},
		{"quiet splash", "amd_pstate", "quiet splash", false},
		{"nomodeset", "nomodeset", "", true},
		{"amd_pstate_epp=1", "amd_pstate", "amd_pstate_epp=1", false},
	}

	for _, c := range cases {
		got, changed := RemoveKey(SplitTokens(c.line), c.key)
		if JoinTokens(got) != c.want || changed != c.wantChanged {
			t.Errorf("RemoveKey(%q, %q) = (%q, %v), want (%q, %v)",
				c.line, c.key, JoinTokens(got), changed, c.want, c.wantChanged)
		}
	}
}
