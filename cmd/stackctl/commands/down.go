package commands

import (
	"github.com/spf13/cobra"

	"github.com/opsmith/stackctl/cmd/stackctl/handlers"
)

// Down returns the down command.
//
// Down destroys the environment's compute resources. Durable storage (state
// bucket, lock table, secret namespace) is kept unless --delete-storage is
// passed and separately confirmed.
func Down() *cobra.Command {
	var flags handlers.DownFlags

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Destroy the environment's compute resources",
		Long: `Down runs terraform destroy against the environment.

Destroying requires typing the confirmation phrase "destroy <environment>".
Declining the phrase cancels the run without touching anything. Passing
--delete-storage additionally removes the state bucket, the lock table and
the remote secret namespace behind a second, independent phrase
("delete storage <environment>").

A destroy failure is not rolled back: the remaining resources are reported
and down must be re-run.

Example:
  stackctl down -c stackctl.yaml
  stackctl down --dry-run          # destroy-mode plan, nothing removed
  stackctl down --delete-storage   # also remove durable storage

WARNING: --force skips both confirmations. Use it only in automation that
has its own safeguards.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Down(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.ConfigPath, "config", "c", "", "Path to environment configuration file (default: stackctl.yaml)")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "Report what destroy would remove without executing it")
	cmd.Flags().BoolVar(&flags.Force, "force", false, "Skip the typed confirmations (dangerous)")
	cmd.Flags().BoolVar(&flags.DeleteStorage, "delete-storage", false, "Also delete the state bucket, lock table and secret namespace")
	cmd.Flags().BoolVar(&flags.SkipProvision, "skip-provision", false, "No effect during down; accepted for scripting symmetry with up")
	cmd.Flags().BoolVar(&flags.SkipConfigure, "skip-configure", false, "No effect during down; accepted for scripting symmetry with up")
	cmd.Flags().StringArrayVar(&flags.Secrets, "secret", nil, "Secret override as key=value (repeatable, highest precedence)")

	return cmd
}
