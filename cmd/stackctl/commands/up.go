package commands

import (
	"github.com/spf13/cobra"

	"github.com/opsmith/stackctl/cmd/stackctl/handlers"
)

// Up returns the up command.
//
// Up advances the environment through provisioning, readiness probing,
// configuration and verification. Re-running against an environment that is
// already up converges it without creating duplicates.
func Up() *cobra.Command {
	var flags handlers.UpFlags

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Provision and configure the environment",
		Long: `Up runs the full bring-up sequence:

  1. resolve credentials (overrides > environment > secrets file > remote store)
  2. ensure state storage, then terraform init/plan/apply
  3. wait until every declared server answers its readiness probe
  4. apply the ansible playbooks in declared order
  5. re-probe every server once and print the final summary

A failed run prints the failing phase, the tool's last output lines and the
exact command to resume without repeating completed work.

Example:
  stackctl up -c stackctl.yaml
  stackctl up --skip-provision   # reuse recorded addresses, reconfigure only
  stackctl up --dry-run          # plan + playbook syntax check, change nothing`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Up(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.ConfigPath, "config", "c", "", "Path to environment configuration file (default: stackctl.yaml)")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "Report intended actions without changing anything")
	cmd.Flags().BoolVar(&flags.SkipProvision, "skip-provision", false, "Reuse recorded server addresses instead of running terraform")
	cmd.Flags().BoolVar(&flags.SkipConfigure, "skip-configure", false, "Stop after readiness, leaving playbooks unrun")
	cmd.Flags().BoolVar(&flags.Force, "force", false, "Skip confirmations (up has none; accepted for scripting symmetry with down)")
	cmd.Flags().StringArrayVar(&flags.Secrets, "secret", nil, "Secret override as key=value (repeatable, highest precedence)")

	return cmd
}
