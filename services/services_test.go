package services

import (
	"os"
	"path/filepath"
	"testing"

	"gz302-agent/internal/env"
	"gz302-agent/internal/kernel"
	"gz302-agent/internal/state"
)

// testWorld builds a simulated root with a state manager and an oracle
// pinned to the given kernel version encoding.
func testWorld(t *testing.T, version int) (*env.Environment, *state.Manager, *kernel.Oracle) {
	t.Helper()
	root := t.TempDir()
	e := &env.Environment{FSRoot: root, KernelRelease: "test"}
	st := state.NewManager(
		filepath.Join(root, "var/lib/gz302/state"),
		filepath.Join(root, "var/lib/gz302/backups"),
		filepath.Join(root, "var/lib/gz302/gz302-agent.log"),
	)
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	return e, st, kernel.NewOracleAt(version)
}

func writeFixture(t *testing.T, e *env.Environment, rel, content string) string {
	t.Helper()
	path := e.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// wifiPresent plants the sysfs marker the network manager detects.
func wifiPresent(t *testing.T, e *env.Environment) {
	t.Helper()
	if err := os.MkdirAll(e.Path("sys/module/mt7925e"), 0755); err != nil {
		t.Fatal(err)
	}
}

// gpuPresent plants the sysfs marker plus the firmware directory.
func gpuPresent(t *testing.T, e *env.Environment) {
	t.Helper()
	for _, dir := range []string{"sys/module/amdgpu", "lib/firmware/amdgpu"} {
		if err := os.MkdirAll(e.Path(dir), 0755); err != nil {
			t.Fatal(err)
		}
	}
}

// touchpadPresent plants a plausible input device registry entry.
func touchpadPresent(t *testing.T, e *env.Environment) {
	t.Helper()
	writeFixture(t, e, "proc/bus/input/devices",
		"I: Bus=0018 Vendor=04f3 Product=319b Version=0100\n"+
			"N: Name=\"ASUS TouchPad\"\n"+
			"P: Phys=i2c-ASUE140D:00\n"+
			"H: Handlers=mouse0 event5\n\n"+
			"I: Bus=0019 Vendor=0000 Product=0006 Version=0000\n"+
			"N: Name=\"Video Bus\"\n")
}

// audioPresent plants the sound card subsystem identity files.
func audioPresent(t *testing.T, e *env.Environment, vendor, device string) {
	t.Helper()
	writeFixture(t, e, "sys/class/sound/card0/device/subsystem_vendor", vendor+"\n")
	writeFixture(t, e, "sys/class/sound/card0/device/subsystem_device", device+"\n")
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func fileAbsent(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Lstat(path)
	return os.IsNotExist(err)
}
