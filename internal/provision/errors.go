package provision

import (
	"fmt"
	"strings"
)

// Stage identifies which driver sub-step failed.
type Stage string

const (
	StageInit    Stage = "init"
	StagePlan    Stage = "plan"
	StageApply   Stage = "apply"
	StageDestroy Stage = "destroy"
	StageOutput  Stage = "output"

	// StageLocked means the tool could not acquire the remote state lock:
	// another run holds it. Distinct from a generic failure so callers can
	// report contention instead of breakage.
	StageLocked Stage = "locked"
)

// Error reports a failed tool invocation with the trailing output lines for
// diagnostics.
type Error struct {
	Stage    Stage
	ExitCode int
	Output   []string
	TimedOut bool
}

func (e *Error) Error() string {
	switch {
	case e.Stage == StageLocked:
		return "state is locked by another run; wait for it to finish or inspect the lock table"
	case e.TimedOut:
		return fmt.Sprintf("terraform %s exceeded its time limit", e.Stage)
	default:
		return fmt.Sprintf("terraform %s failed (exit %d)", e.Stage, e.ExitCode)
	}
}

// Tail returns the captured output tail as one printable block.
func (e *Error) Tail() string {
	return strings.Join(e.Output, "\n")
}

// lockMessage is the marker terraform prints when the backend lock is held.
const lockMessage = "Error acquiring the state lock"

// detectLock reports whether the output tail indicates lock contention.
func detectLock(output []string) bool {
	for _, line := range output {
		if strings.Contains(line, lockMessage) {
			return true
		}
	}
	return false
}
