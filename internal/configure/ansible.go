package configure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opsmith/stackctl/internal/config"
	"github.com/opsmith/stackctl/internal/creds"
	"github.com/opsmith/stackctl/internal/provision"
	"github.com/opsmith/stackctl/internal/util/run"
)

// secretVarKeys are the credential keys exposed to playbooks as extra vars.
// The cloud key pair and the SSH key path are connection material, not
// playbook input, and stay out of the vars file.
var secretVarKeys = []string{
	creds.KeyAdminPassword,
	creds.KeyRegistryToken,
	creds.KeySMTPPassword,
	creds.KeyTrackerToken,
}

// Driver applies playbooks to provisioned targets.
type Driver struct {
	cfg    *config.Config
	runner run.Runner
}

// NewDriver builds a configuration driver.
func NewDriver(cfg *config.Config, runner run.Runner) *Driver {
	return &Driver{cfg: cfg, runner: runner}
}

// Converge applies every configured playbook in declared order. The first
// failure aborts the rest. Re-running against already-configured targets is
// safe; idempotence is the convergence tool's own contract.
func (d *Driver) Converge(ctx context.Context, targets []provision.Target, credentials *creds.Credentials) error {
	return d.converge(ctx, targets, credentials, false)
}

// SyntaxCheck validates every playbook without executing tasks. Used by
// dry-run mode.
func (d *Driver) SyntaxCheck(ctx context.Context, targets []provision.Target, credentials *creds.Credentials) error {
	return d.converge(ctx, targets, credentials, true)
}

func (d *Driver) converge(ctx context.Context, targets []provision.Target, credentials *creds.Credentials, syntaxOnly bool) error {
	workDir, err := os.MkdirTemp("", "stackctl-configure-")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	// Transient secret material: removed on every exit path.
	defer os.RemoveAll(workDir)

	inventoryPath := filepath.Join(workDir, "inventory.ini")
	if err := d.writeInventory(inventoryPath, targets, credentials); err != nil {
		return err
	}

	varsPath := filepath.Join(workDir, "extra-vars.yaml")
	if err := d.writeExtraVars(varsPath, credentials); err != nil {
		return err
	}

	for _, playbook := range d.cfg.Playbooks {
		if err := d.runPlaybook(ctx, playbook, targets, inventoryPath, varsPath, syntaxOnly); err != nil {
			return err
		}
	}

	return nil
}

func (d *Driver) runPlaybook(ctx context.Context, playbook config.PlaybookSpec, targets []provision.Target, inventoryPath, varsPath string, syntaxOnly bool) error {
	path := playbook.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(d.cfg.PlaybookDir, path)
	}

	args := []string{path, "-i", inventoryPath, "-e", "@" + varsPath}
	if playbook.Group != "" {
		args = append(args, "--limit", playbook.Group)
	}
	if syntaxOnly {
		args = append(args, "--syntax-check")
	}

	res, err := d.runner.Run(ctx, run.Command{
		Name: "ansible-playbook",
		Args: args,
		Env:  []string{"ANSIBLE_HOST_KEY_CHECKING=False"},
	})
	if err != nil {
		return fmt.Errorf("failed to run playbook %s: %w", playbook.File, err)
	}
	if res.ExitCode != 0 {
		return &Error{
			Target:   groupAddresses(targets, playbook.Group),
			Playbook: playbook.File,
			ExitCode: res.ExitCode,
			Output:   res.Tail,
		}
	}

	return nil
}

// writeInventory renders one inventory group per target role. Connection
// settings ride on the host line so playbooks stay payload-only.
func (d *Driver) writeInventory(path string, targets []provision.Target, credentials *creds.Credentials) error {
	keyPath, _ := credentials.Get(creds.KeySSHKeyPath)

	var b strings.Builder
	for _, target := range targets {
		fmt.Fprintf(&b, "[%s]\n", target.Role)
		fmt.Fprintf(&b, "%s ansible_user=%s", target.Address, d.cfg.SSHUser)
		if keyPath != "" {
			fmt.Fprintf(&b, " ansible_ssh_private_key_file=%s", keyPath)
		}
		b.WriteString("\n\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write inventory: %w", err)
	}
	return nil
}

// writeExtraVars renders the secret extra vars with restrictive permissions.
func (d *Driver) writeExtraVars(path string, credentials *creds.Credentials) error {
	vars := map[string]string{
		"environment_name": d.cfg.Environment,
	}
	for _, key := range secretVarKeys {
		if value, ok := credentials.Get(key); ok {
			vars[key] = value
		}
	}

	data, err := yaml.Marshal(vars)
	if err != nil {
		return fmt.Errorf("failed to marshal extra vars: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write extra vars: %w", err)
	}
	return nil
}

func groupAddresses(targets []provision.Target, group string) string {
	var addresses []string
	for _, target := range targets {
		if group == "" || target.Role == group {
			addresses = append(addresses, target.Address)
		}
	}
	if len(addresses) == 0 {
		return group
	}
	return strings.Join(addresses, ",")
}
