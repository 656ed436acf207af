package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/opsmith/stackctl/internal/config"
	platformaws "github.com/opsmith/stackctl/internal/platform/aws"
	"github.com/opsmith/stackctl/internal/storage"
	"github.com/opsmith/stackctl/internal/ui/prompt"
	"github.com/opsmith/stackctl/internal/util/prerequisites"
)

// DoctorFlags are the parsed flags of the doctor command.
type DoctorFlags struct {
	ConfigPath string
}

// storageChecker is the reachability surface doctor needs.
type storageChecker interface {
	Check(ctx context.Context) (*storage.Status, error)
}

// Factory function variables for doctor - can be replaced in tests.
var (
	checkAllTools = prerequisites.CheckAll

	newStorageChecker = func(ctx context.Context, cfg *config.Config) (storageChecker, error) {
		awsCfg, err := platformaws.NewConfig(ctx, cfg.Storage.Region, "", "")
		if err != nil {
			return nil, err
		}
		return storage.FromConfig(cfg.Storage, awsCfg, loadTimeouts()), nil
	}
)

// Doctor handles the doctor command.
//
// It checks the external tools stackctl depends on and, when a configuration
// file is available, whether the environment's storage resources exist.
// Missing required tools make doctor fail; missing storage does not (a
// fresh environment legitimately has none yet).
func Doctor(ctx context.Context, flags DoctorFlags) error {
	results := checkAllTools()
	fmt.Print(prompt.RenderPrerequisites(results.Results))

	cfg, err := loadConfig(flags.ConfigPath)
	if err != nil {
		// Doctor without a config still reports tool status.
		log.Printf("no environment configuration: %v", err)
		return results.Error()
	}

	checker, err := newStorageChecker(ctx, cfg)
	if err != nil {
		return errors.Join(results.Error(), err)
	}
	status, err := checker.Check(ctx)
	if err != nil {
		log.Printf("storage check failed: %v", err)
		return errors.Join(results.Error(), err)
	}

	fmt.Printf("state bucket %s: %s\n", cfg.Storage.Bucket, existsWord(status.BucketExists))
	fmt.Printf("lock table %s: %s\n", cfg.Storage.LockTable, existsWord(status.TableExists))

	return results.Error()
}

func existsWord(exists bool) string {
	if exists {
		return "exists"
	}
	return "absent (created on first up)"
}
