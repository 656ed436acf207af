// Package main is the entry point for the stackctl CLI.
//
// stackctl provisions and configures a small AWS environment (a CI server
// plus application servers) by sequencing terraform and ansible-playbook,
// with durable state storage (S3 bucket, DynamoDB lock table, SSM secrets)
// managed independently of the compute fleet.
//
// Commands: up, down, cleanup, doctor, version, completion.
//
// For detailed usage information, run:
//
//	stackctl --help
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/opsmith/stackctl/cmd/stackctl/commands"
	"github.com/opsmith/stackctl/cmd/stackctl/handlers"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Argument and flag errors exit 2; phase and tool failures exit 1.
		var argErr *handlers.ArgumentError
		if errors.As(err, &argErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
