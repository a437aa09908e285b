package env

import (
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Environment carries the ambient host facts every manager needs. It is
// built once at startup and passed into constructors explicitly; nothing in
// this package keeps mutable package state.
type Environment struct {
	// FSRoot is the filesystem prefix all artifact paths are resolved
	// against. "/" on a live host, a scratch directory under test.
	FSRoot string
	// EffectiveUser is the user the process runs as (root for real runs).
	EffectiveUser string
	// RealUser is the invoking user behind sudo, when determinable.
	RealUser string
	// DistroFamily is one of arch/debian/fedora/suse/"".
	DistroFamily string
	// KernelRelease is the raw uname -r string, e.g. "6.14.3-arch1-1".
	KernelRelease string
}

/**
 * Detect the ambient environment of the running host
 * @returns {*Environment} Returns populated environment, never nil
 * @description
 * - Reads effective and invoking user (SUDO_USER, then logname fallback)
 * - Routes /etc/os-release ID and ID_LIKE to a base distro family
 * - Falls back to package-manager probing when os-release is unhelpful
 * - Reads the kernel release via uname(2)
 */
func DetectEnvironment() *Environment {
	e := &Environment{FSRoot: "/"}

	if u, err := user.Current(); err == nil {
		e.EffectiveUser = u.Username
	}
	e.RealUser = realUser(e.EffectiveUser)
	e.DistroFamily = detectDistroFamily(e.FSRoot)

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		e.KernelRelease = unix.ByteSliceToString(uts.Release[:])
	}
	return e
}

// Live reports whether the environment points at the real root filesystem.
// Managers only invoke service/udev/bootloader tooling on a live host;
// against a scratch root they restrict themselves to file operations.
func (e *Environment) Live() bool {
	return e.FSRoot == "/" || e.FSRoot == ""
}

// Path resolves an absolute artifact path against the filesystem root.
func (e *Environment) Path(elem ...string) string {
	return filepath.Join(append([]string{e.FSRoot}, elem...)...)
}

// IsRoot reports whether the process has root privileges.
func (e *Environment) IsRoot() bool {
	return os.Geteuid() == 0
}

func realUser(fallback string) string {
	if su := os.Getenv("SUDO_USER"); su != "" {
		return su
	}
	if out, err := exec.Command("logname").Output(); err == nil {
		if name := strings.TrimSpace(string(out)); name != "" {
			return name
		}
	}
	return fallback
}

/**
 * Map the installed distribution onto a base family
 * @param {string} root - Filesystem root to probe under
 * @returns {string} Returns arch/debian/fedora/suse or "" when undetectable
 * @description
 * - Parses ID and ID_LIKE from os-release, routing derivatives to their base
 * - Unknown IDs fall back to probing for pacman/apt/dnf/zypper
 */
func detectDistroFamily(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "etc/os-release"))
	if err == nil {
		fields := parseOSRelease(string(data))
		id := fields["ID"]
		like := fields["ID_LIKE"]
		if family := routeDistroID(id); family != "" {
			return family
		}
		for _, l := range strings.Fields(like) {
			if family := routeDistroID(l); family != "" {
				return family
			}
		}
	}

	switch {
	case commandExists("pacman"):
		return "arch"
	case commandExists("apt"):
		return "debian"
	case commandExists("dnf"), commandExists("yum"):
		return "fedora"
	case commandExists("zypper"):
		return "suse"
	}
	return ""
}

func routeDistroID(id string) string {
	switch strings.ToLower(id) {
	case "arch", "endeavouros", "manjaro", "artix", "arcolinux", "cachyos":
		return "arch"
	case "ubuntu", "debian", "pop", "linuxmint", "elementary", "zorin":
		return "debian"
	case "fedora", "rhel", "centos", "almalinux", "rocky", "nobara":
		return "fedora"
	case "opensuse", "opensuse-tumbleweed", "opensuse-leap", "sled", "sles", "suse":
		return "suse"
	}
	return ""
}

func parseOSRelease(content string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[key] = strings.Trim(value, `"`)
	}
	return fields
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
