package commands

import (
	"github.com/spf13/cobra"

	"github.com/opsmith/stackctl/cmd/stackctl/handlers"
)

// Doctor returns the doctor command.
func Doctor() *cobra.Command {
	var flags handlers.DoctorFlags

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites and storage reachability",
		Long: `Doctor verifies that the external tools stackctl shells out to are
installed (terraform, ansible-playbook) and, when a configuration file is
present, whether the environment's state bucket and lock table exist.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.ConfigPath, "config", "c", "", "Path to environment configuration file (optional)")

	return cmd
}
