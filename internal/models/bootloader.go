package models

// BootloaderKind identifies which boot configuration strategy applies to
// this host. Detected once per process by probing marker files.
type BootloaderKind int

const (
	BootloaderUnknown BootloaderKind = iota
	BootloaderGrub
	BootloaderSystemdBoot
	BootloaderLimine
	BootloaderRefind
	BootloaderSyslinux
)

func (k BootloaderKind) String() string {
	switch k {
	case BootloaderGrub:
		return "GRUB"
	case BootloaderSystemdBoot:
		return "systemd-boot"
	case BootloaderLimine:
		return "Limine"
	case BootloaderRefind:
		return "rEFInd"
	case BootloaderSyslinux:
		return "syslinux"
	default:
		return "unknown"
	}
}
