package orchestrate

import (
	"fmt"
	"time"

	"github.com/opsmith/stackctl/internal/provision"
)

// Phase names one step of the up state machine, in execution order.
type Phase string

const (
	PhaseCredentialsResolved Phase = "credentials_resolved"
	PhaseProvisioned         Phase = "provisioned"
	PhaseReady               Phase = "ready"
	PhaseConfigured          Phase = "configured"
	PhaseVerified            Phase = "verified"
)

// phaseOrder fixes the forward-only ordering of the up machine.
var phaseOrder = []Phase{
	PhaseCredentialsResolved,
	PhaseProvisioned,
	PhaseReady,
	PhaseConfigured,
	PhaseVerified,
}

func phaseIndex(p Phase) int {
	for i, candidate := range phaseOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Outcome is the result recorded for one phase.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeSkipped Outcome = "skipped"
)

// PhaseRecord is one completed phase with its outcome.
type PhaseRecord struct {
	Phase     Phase     `yaml:"phase"`
	Outcome   Outcome   `yaml:"outcome"`
	Timestamp time.Time `yaml:"timestamp"`
}

// RunState is the durable record of one environment's most recent up run.
// It carries the provisioned target addresses so a resumed run can skip
// re-provisioning.
type RunState struct {
	Environment string             `yaml:"environment"`
	Phases      []PhaseRecord      `yaml:"phases"`
	Targets     []provision.Target `yaml:"targets,omitempty"`
	UpdatedAt   time.Time          `yaml:"updated_at"`
}

// NewRunState starts an empty state for a fresh run.
func NewRunState(environment string) *RunState {
	return &RunState{Environment: environment}
}

// Record appends a phase outcome. Phases only move forward: recording a
// phase at or before the last recorded one is a programming error and is
// rejected rather than silently reordering history.
func (s *RunState) Record(phase Phase, outcome Outcome) error {
	idx := phaseIndex(phase)
	if idx < 0 {
		return fmt.Errorf("unknown phase %q", phase)
	}
	if last := s.lastIndex(); idx <= last {
		return fmt.Errorf("phase %s cannot follow %s", phase, phaseOrder[last])
	}

	now := time.Now().UTC()
	s.Phases = append(s.Phases, PhaseRecord{Phase: phase, Outcome: outcome, Timestamp: now})
	s.UpdatedAt = now
	return nil
}

// Completed reports whether a phase was recorded with a success or skipped
// outcome.
func (s *RunState) Completed(phase Phase) bool {
	for _, r := range s.Phases {
		if r.Phase == phase && r.Outcome != OutcomeFailure {
			return true
		}
	}
	return false
}

func (s *RunState) lastIndex() int {
	if len(s.Phases) == 0 {
		return -1
	}
	return phaseIndex(s.Phases[len(s.Phases)-1].Phase)
}

// PhaseError marks a run as failed at a specific phase. The handler layer
// renders the phase, the captured output and the resume command.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase %s failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// ResumeCommand returns the exact command that continues an interrupted run
// without repeating completed phases.
func (e *PhaseError) ResumeCommand() string {
	switch e.Phase {
	case PhaseReady, PhaseConfigured, PhaseVerified:
		// Provisioning completed; only configuration needs to re-run.
		return "stackctl up --skip-provision"
	default:
		return "stackctl up"
	}
}
