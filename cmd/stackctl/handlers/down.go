package handlers

import (
	"context"

	"github.com/opsmith/stackctl/internal/creds"
	"github.com/opsmith/stackctl/internal/orchestrate"
)

// DownFlags are the parsed flags of the down command.
type DownFlags struct {
	ConfigPath    string
	Secrets       []string
	DryRun        bool
	Force         bool
	DeleteStorage bool

	// SkipProvision and SkipConfigure are accepted so up and down share one
	// flag vocabulary; a destroy has no provision or configure phase to skip.
	SkipProvision bool
	SkipConfigure bool
}

// Down handles the down command.
//
// Destroying only needs the cloud credential pair; SSH material and the
// admin password are not required to tear compute down.
func Down(ctx context.Context, flags DownFlags) error {
	cfg, err := loadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}

	overrides, err := parseOverrides(flags.Secrets)
	if err != nil {
		return err
	}

	if err := ensurePrerequisites(cfg); err != nil {
		return err
	}

	orch := newOrchestrator(cfg, overrides, []string{
		creds.KeyAWSAccessKeyID,
		creds.KeyAWSSecretAccessKey,
	})
	return orch.Down(ctx, orchestrate.DownOptions{
		DryRun:        flags.DryRun,
		Force:         flags.Force,
		DeleteStorage: flags.DeleteStorage,
	})
}
