package prompt

import (
	"fmt"
	"strings"

	"github.com/opsmith/stackctl/internal/provision"
	"github.com/opsmith/stackctl/internal/util/prerequisites"
)

// RenderTargets renders the per-target status table shown at the end of a
// run.
func RenderTargets(environment string, targets []provision.Target) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Environment %s", environment)))
	b.WriteString("\n")

	for i := range targets {
		t := &targets[i]
		mark, style := crossMark, failedStyle
		switch t.Status {
		case provision.StatusReady:
			mark, style = checkMark, readyStyle
		case provision.StatusUnknown, provision.StatusUnreachable:
			mark, style = warnMark, warningStyle
		}
		line := fmt.Sprintf("%s %-8s %-16s %s", mark, t.Role, t.Address, t.Status)
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderPrerequisites renders doctor's tool check results.
func RenderPrerequisites(results []prerequisites.CheckResult) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Prerequisites"))
	b.WriteString("\n")

	for _, r := range results {
		switch {
		case r.Found:
			b.WriteString(readyStyle.Render(fmt.Sprintf("%s %-18s %s", checkMark, r.Tool.Name, r.Path)))
		case !r.Tool.Required:
			b.WriteString(warningStyle.Render(fmt.Sprintf("%s %-18s not found (optional)", warnMark, r.Tool.Name)))
		default:
			b.WriteString(failedStyle.Render(fmt.Sprintf("%s %-18s not found: %s", crossMark, r.Tool.Name, r.Tool.InstallURL)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderResumeHint renders the failure epilogue: the failed phase, the tail
// of the captured output, and the exact resume command.
func RenderResumeHint(phase, tail, resumeCommand string) string {
	var b strings.Builder
	b.WriteString(failedStyle.Render(fmt.Sprintf("Run failed during %s.", phase)))
	b.WriteString("\n")
	if tail != "" {
		b.WriteString(dimStyle.Render(tail))
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Resume with: %s", resumeCommand))
	return b.String()
}
