package env

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRouteDistroID(t *testing.T) {
	cases := []struct {
		id   string
		want string
	}{
		{"arch", "arch"},
		{"EndeavourOS", "arch"},
		{"cachyos", "arch"},
		{"ubuntu", "debian"},
		{"pop", "debian"},
		{"fedora", "fedora"},
		{"nobara", "fedora"},
		{"opensuse-tumbleweed", "suse"},
		{"gentoo", ""},
	}
	for _, c := range cases {
		if got := routeDistroID(c.id); got != c.want {
			t.Errorf("routeDistroID(%q) = %q, want %q", c.id, got, c.want)
		}
	}
}

func TestDetectDistroFamilyFromOSRelease(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "etc"), 0755); err != nil {
		t.Fatal(err)
	}

	// a derivative routes through ID_LIKE when its own ID is unknown
	content := "NAME=\"Some Derivative\"\nID=somederiv\nID_LIKE=\"ubuntu debian\"\n"
	if err := os.WriteFile(filepath.Join(root, "etc/os-release"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if got := detectDistroFamily(root); got != "debian" {
		t.Errorf("family = %q, want debian", got)
	}
}

func TestEnvironmentPathAndLive(t *testing.T) {
	e := &Environment{FSRoot: "/tmp/scratch"}
	if e.Live() {
		t.Error("scratch root reported live")
	}
	if got := e.Path("etc/modprobe.d/mt7925e.conf"); got != "/tmp/scratch/etc/modprobe.d/mt7925e.conf" {
		t.Errorf("Path = %q", got)
	}

	live := &Environment{FSRoot: "/"}
	if !live.Live() {
		t.Error("root filesystem not reported live")
	}
}

func TestParseOSRelease(t *testing.T) {
	fields := parseOSRelease("# comment\nID=arch\nPRETTY_NAME=\"Arch Linux\"\n\nBADLINE\n")
	if fields["ID"] != "arch" {
		t.Errorf("ID = %q", fields["ID"])
	}
	if fields["PRETTY_NAME"] != "Arch Linux" {
		t.Errorf("PRETTY_NAME = %q", fields["PRETTY_NAME"])
	}
	if _, ok := fields["BADLINE"]; ok {
		t.Error("line without = parsed as a field")
	}
}
