package provision

import "github.com/opsmith/stackctl/internal/config"

// TargetStatus tracks a target through readiness probing.
type TargetStatus string

const (
	StatusUnknown     TargetStatus = "unknown"
	StatusUnreachable TargetStatus = "unreachable"
	StatusReady       TargetStatus = "ready"
	StatusFailed      TargetStatus = "failed"
)

// Target is one provisioned compute node. The address is immutable once
// assigned for the lifetime of a run: re-provisioning yields a new record,
// never a mutation.
type Target struct {
	// Role is the logical role from the target spec, e.g. "ci" or "app".
	Role string `yaml:"role"`

	// Address is the network address the provisioning output assigned.
	Address string `yaml:"address"`

	// Status is updated by the readiness prober. Each target's status is
	// written by at most one prober goroutine.
	Status TargetStatus `yaml:"status"`

	// Probe settings copied from the target spec.
	Probe config.ProbeKind `yaml:"probe"`
	Port  int              `yaml:"port"`
	Path  string           `yaml:"path,omitempty"`
}

// Endpoint returns the address:port pair probes connect to.
func (t *Target) Endpoint() string {
	return joinHostPort(t.Address, t.Port)
}
