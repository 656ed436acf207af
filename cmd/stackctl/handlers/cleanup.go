package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/opsmith/stackctl/internal/config"
	platformaws "github.com/opsmith/stackctl/internal/platform/aws"
	"github.com/opsmith/stackctl/internal/ui/prompt"
)

// environmentTagKey is the tag the terraform modules put on every instance
// they create. The cleanup sweep matches on it.
const environmentTagKey = "stackctl:environment"

// CleanupFlags are the parsed flags of the cleanup command.
type CleanupFlags struct {
	ConfigPath string
	DryRun     bool
	Force      bool
}

// computeSweeper is the instance sweep surface, implemented by the EC2
// compute client.
type computeSweeper interface {
	FindByTags(ctx context.Context, tags map[string]string) ([]platformaws.Instance, error)
	Terminate(ctx context.Context, ids []string) error
}

// Factory function variables for cleanup - can be replaced in tests.
var (
	newComputeSweeper = func(ctx context.Context, cfg *config.Config) (computeSweeper, error) {
		// The sweep runs outside the credential resolver on purpose: it is
		// an emergency tool and must work with whatever the SDK's default
		// chain offers, even when the secrets file is gone.
		awsCfg, err := platformaws.NewConfig(ctx, cfg.Storage.Region, "", "")
		if err != nil {
			return nil, err
		}
		return platformaws.NewComputeClient(awsCfg), nil
	}

	confirmCleanup = func(summary, phrase string) (bool, error) {
		return prompt.TypedConfirmer{}.ConfirmPhrase(summary, phrase)
	}
)

// Cleanup handles the cleanup command.
//
// It finds non-terminated instances tagged with the environment name and
// terminates them after a typed confirmation. This is the last-resort sweep
// for orphans a failed destroy left untracked; it never touches storage.
func Cleanup(ctx context.Context, flags CleanupFlags) error {
	cfg, err := loadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}

	sweeper, err := newComputeSweeper(ctx, cfg)
	if err != nil {
		return err
	}

	instances, err := sweeper.FindByTags(ctx, map[string]string{environmentTagKey: cfg.Environment})
	if err != nil {
		return err
	}
	if len(instances) == 0 {
		log.Printf("no instances tagged %s=%s", environmentTagKey, cfg.Environment)
		return nil
	}

	for _, inst := range instances {
		log.Printf("found %s (%s, %s)", inst.ID, inst.Name, inst.State)
	}
	if flags.DryRun {
		log.Printf("dry-run: %d instance(s) would be terminated", len(instances))
		return nil
	}

	if !flags.Force {
		summary := fmt.Sprintf("This terminates %d instance(s) tagged %s=%s.", len(instances), environmentTagKey, cfg.Environment)
		confirmed, err := confirmCleanup(summary, "cleanup "+cfg.Environment)
		if err != nil {
			return err
		}
		if !confirmed {
			log.Printf("cleanup cancelled; no instances were touched")
			return nil
		}
	}

	ids := make([]string, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.ID)
	}
	if err := sweeper.Terminate(ctx, ids); err != nil {
		return err
	}
	log.Printf("terminated %d instance(s)", len(ids))
	return nil
}
