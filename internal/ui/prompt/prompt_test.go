package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opsmith/stackctl/internal/provision"
	"github.com/opsmith/stackctl/internal/util/prerequisites"
)

func TestMatchPhrase(t *testing.T) {
	t.Parallel()

	assert.True(t, matchPhrase("destroy staging", "destroy staging"))
	assert.True(t, matchPhrase("  destroy staging \n", "destroy staging"))

	assert.False(t, matchPhrase("destroy production", "destroy staging"))
	assert.False(t, matchPhrase("yes", "destroy staging"))
	assert.False(t, matchPhrase("", "destroy staging"))
	// Partial phrases never confirm.
	assert.False(t, matchPhrase("destroy", "destroy staging"))
}

func TestRenderTargets(t *testing.T) {
	t.Parallel()
	out := RenderTargets("staging", []provision.Target{
		{Role: "ci", Address: "10.0.1.5", Status: provision.StatusReady},
		{Role: "app", Address: "10.0.1.6", Status: provision.StatusFailed},
	})

	assert.Contains(t, out, "Environment staging")
	assert.Contains(t, out, "[OK]")
	assert.Contains(t, out, "10.0.1.5")
	assert.Contains(t, out, "[!!]")
	assert.Contains(t, out, "10.0.1.6")
}

func TestRenderPrerequisites(t *testing.T) {
	t.Parallel()
	out := RenderPrerequisites([]prerequisites.CheckResult{
		{Tool: prerequisites.Tool{Name: "terraform", Required: true}, Found: true, Path: "/usr/bin/terraform"},
		{Tool: prerequisites.Tool{Name: "aws", Required: false}, Found: false},
		{Tool: prerequisites.Tool{Name: "ansible-playbook", Required: true, InstallURL: "https://docs.ansible.com"}, Found: false},
	})

	assert.Contains(t, out, "/usr/bin/terraform")
	assert.Contains(t, out, "not found (optional)")
	assert.Contains(t, out, "https://docs.ansible.com")
}

func TestRenderResumeHint(t *testing.T) {
	t.Parallel()
	out := RenderResumeHint("configured", "fatal: task failed", "stackctl up --skip-provision")

	assert.Contains(t, out, "failed during configured")
	assert.Contains(t, out, "fatal: task failed")
	assert.Contains(t, out, "Resume with: stackctl up --skip-provision")
}
