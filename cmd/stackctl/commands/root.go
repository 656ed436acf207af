// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsmith/stackctl/cmd/stackctl/handlers"
)

// Root returns the root command for the stackctl CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stackctl",
		Short: "Provision and configure a CI + application environment on AWS",
		Long: `stackctl brings a declared environment up or down by sequencing
terraform (compute, network) and ansible-playbook (configuration), probing
each server for readiness in between.

Remote terraform state, its lock table and the environment's secrets live in
durable AWS storage whose lifecycle is independent of the servers: destroying
an environment keeps its storage unless deletion is confirmed separately.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Unknown subcommands fall through to the root's own RunE; marking
		// them as argument errors there gives them the usage exit code.
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return handlers.NewArgumentError(fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath()))
			}
			return cmd.Help()
		},
	}

	// Cobra reports flag and argument misuse as plain errors; wrapping them
	// here is what gives `stackctl` its distinct exit code for usage errors.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return handlers.NewArgumentError(err)
	})

	cmd.AddCommand(Up())
	cmd.AddCommand(Down())
	cmd.AddCommand(Cleanup())
	cmd.AddCommand(Doctor())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}

// usageArgs wraps a positional-args validator so violations exit with the
// invalid-arguments code instead of a generic failure.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return handlers.NewArgumentError(err)
		}
		return nil
	}
}
