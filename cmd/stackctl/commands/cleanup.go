package commands

import (
	"github.com/spf13/cobra"

	"github.com/opsmith/stackctl/cmd/stackctl/handlers"
)

// Cleanup returns the cleanup command.
//
// Cleanup sweeps for compute instances tagged with the environment name and
// terminates them. It exists for the rare case where a failed destroy leaves
// orphans that terraform no longer tracks; normal teardown is `down`.
func Cleanup() *cobra.Command {
	var flags handlers.CleanupFlags

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Terminate orphaned instances tagged with this environment",
		Long: `Cleanup finds non-terminated EC2 instances carrying this environment's
tag and terminates them. It never touches storage and never runs terraform;
it is a last-resort sweep for resources a failed destroy left behind.

Example:
  stackctl cleanup -c stackctl.yaml --dry-run   # list what would be terminated
  stackctl cleanup -c stackctl.yaml --force`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Cleanup(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.ConfigPath, "config", "c", "", "Path to environment configuration file (default: stackctl.yaml)")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "List matching instances without terminating them")
	cmd.Flags().BoolVar(&flags.Force, "force", false, "Skip the typed confirmation (dangerous)")

	return cmd
}
