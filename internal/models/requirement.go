package models

// RequirementStatus is the outcome of a kernel-compatibility decision for a
// single named workaround.
type RequirementStatus int

const (
	// StatusNotApplicable means the workaround does not concern this machine
	// (hardware absent or identity mismatch). Nothing is written or removed.
	StatusNotApplicable RequirementStatus = iota
	// StatusRequired means the running kernel still needs the workaround.
	StatusRequired
	// StatusObsolete means the kernel has the upstream fix and a previously
	// applied workaround must be actively removed if present.
	StatusObsolete
)

func (s RequirementStatus) String() string {
	switch s {
	case StatusRequired:
		return "required"
	case StatusObsolete:
		return "obsolete"
	default:
		return "not-applicable"
	}
}

/**
 * Hardware facts gathered by a component manager's read-only detection pass
 * @property {bool} present - Whether the component hardware was found
 * @property {string} identity - Human readable device identity
 * @property {string} subsystemID - PCI subsystem vendor:device pair when known
 */
type HardwareFacts struct {
	Present     bool   `json:"present"`
	Identity    string `json:"identity"`
	SubsystemID string `json:"subsystemId,omitempty"`
}
