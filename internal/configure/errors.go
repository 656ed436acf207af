package configure

import (
	"fmt"
	"strings"
)

// Error reports a failed playbook application.
type Error struct {
	// Target holds the affected addresses, comma separated.
	Target   string
	Playbook string
	ExitCode int
	Output   []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("playbook %s failed on %s (exit %d)", e.Playbook, e.Target, e.ExitCode)
}

// Tail returns the captured output tail as one printable block.
func (e *Error) Tail() string {
	return strings.Join(e.Output, "\n")
}
