package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/opsmith/stackctl/internal/configure"
	"github.com/opsmith/stackctl/internal/orchestrate"
	"github.com/opsmith/stackctl/internal/provision"
	"github.com/opsmith/stackctl/internal/ui/prompt"
)

// UpFlags are the parsed flags of the up command.
type UpFlags struct {
	ConfigPath    string
	Secrets       []string
	DryRun        bool
	SkipProvision bool
	SkipConfigure bool

	// Force is accepted so up and down share one flag vocabulary; up never
	// prompts for confirmation, so it changes nothing.
	Force bool
}

// Up handles the up command.
//
// It loads the environment configuration, checks prerequisites, and runs the
// up state machine. On failure it prints the failing phase, the tool's last
// output lines and the exact resume command before returning the error.
func Up(ctx context.Context, flags UpFlags) error {
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

	orch := newOrchestrator(cfg, overrides, nil)
	err = orch.Up(ctx, orchestrate.UpOptions{
		DryRun:        flags.DryRun,
		SkipProvision: flags.SkipProvision,
		SkipConfigure: flags.SkipConfigure,
	})
	if err != nil {
		var pErr *orchestrate.PhaseError
		if errors.As(err, &pErr) {
			fmt.Fprintln(os.Stderr, prompt.RenderResumeHint(string(pErr.Phase), failureTail(pErr), pErr.ResumeCommand()))
		}
		return err
	}

	if flags.DryRun {
		return nil
	}

	if state, stateErr := loadRunState(cfg.Environment); stateErr == nil && state != nil {
		fmt.Println(prompt.RenderTargets(cfg.Environment, state.Targets))
	}
	return nil
}

// failureTail extracts the captured output tail from the typed driver
// errors, when present.
func failureTail(err error) string {
	var pErr *provision.Error
	if errors.As(err, &pErr) {
		return pErr.Tail()
	}
	var cErr *configure.Error
	if errors.As(err, &cErr) {
		return cErr.Tail()
	}
	return ""
}
