// Package run executes external tools as subprocesses with a hard wall-clock
// timeout and a bounded tail of captured output.
//
// The drivers for terraform and ansible-playbook are built on the Runner
// interface so orchestration logic can be tested with fakes and never spawns
// real subprocesses in unit tests.
package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// DefaultTailLines is the number of trailing output lines kept for diagnostics.
const DefaultTailLines = 20

// Command describes one subprocess invocation.
type Command struct {
	// Name is the binary to execute, resolved via PATH.
	Name string

	// Args are passed verbatim to the binary.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds extra KEY=VALUE entries appended to the parent environment.
	// Secret material is injected here; it is never echoed to logs.
	Env []string

	// CaptureStdout requests the full stdout be returned in Result.Stdout
	// (used for machine-readable output such as `terraform output -json`).
	// Stderr is still tail-captured.
	CaptureStdout bool
}

// Result is the outcome of a completed subprocess.
type Result struct {
	ExitCode int
	Tail     []string // last lines of combined (or stderr-only) output
	Stdout   string   // full stdout, only when CaptureStdout was set
	TimedOut bool
	Duration time.Duration
}

// Runner executes commands. Implementations must be safe for sequential reuse.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands via os/exec with a per-invocation timeout.
type ExecRunner struct {
	// Timeout bounds each invocation's wall-clock time. Zero means no bound
	// beyond the caller's context.
	Timeout time.Duration

	// TailLines overrides DefaultTailLines when positive.
	TailLines int

	// Stream, when set, receives the subprocess output live (typically
	// os.Stdout so operators can watch terraform/ansible progress).
	Stream io.Writer
}

// Run executes the command. A non-zero exit is not an error at this layer: it
// is reported through Result.ExitCode so drivers can attach their own typed
// errors. An error is returned only when the process could not be started or
// its exit status could not be determined.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	tail := newTailWriter(r.tailLines())
	var sinks []io.Writer
	sinks = append(sinks, tail)
	if r.Stream != nil {
		sinks = append(sinks, r.Stream)
	}
	combined := io.MultiWriter(sinks...)

	// #nosec G204 -- binary and arguments come from driver code, not user input
	proc := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	proc.Dir = cmd.Dir
	proc.Env = append(os.Environ(), cmd.Env...)
	proc.Stderr = combined

	var stdout bytes.Buffer
	if cmd.CaptureStdout {
		proc.Stdout = &stdout
	} else {
		proc.Stdout = combined
	}

	start := time.Now()
	err := proc.Run()
	result := &Result{
		Tail:     tail.Lines(),
		Stdout:   stdout.String(),
		Duration: time.Since(start),
		TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
	}

	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	if result.TimedOut {
		result.ExitCode = -1
		return result, nil
	}

	return nil, fmt.Errorf("failed to start %s: %w", cmd.Name, err)
}

func (r *ExecRunner) tailLines() int {
	if r.TailLines > 0 {
		return r.TailLines
	}
	return DefaultTailLines
}

// tailWriter keeps the last n complete lines written to it.
type tailWriter struct {
	mu      sync.Mutex
	n       int
	lines   []string
	partial strings.Builder
}

func newTailWriter(n int) *tailWriter {
	return &tailWriter{n: n}
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, b := range p {
		if b == '\n' {
			w.append(w.partial.String())
			w.partial.Reset()
			continue
		}
		w.partial.WriteByte(b)
	}
	return len(p), nil
}

func (w *tailWriter) append(line string) {
	w.lines = append(w.lines, line)
	if len(w.lines) > w.n {
		w.lines = w.lines[len(w.lines)-w.n:]
	}
}

// Lines returns the captured tail, including any unterminated final line.
func (w *tailWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, len(w.lines))
	copy(out, w.lines)
	if w.partial.Len() > 0 {
		out = append(out, w.partial.String())
		if len(out) > w.n {
			out = out[len(out)-w.n:]
		}
	}
	return out
}
