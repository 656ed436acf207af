// Package handlers implements the command logic behind the cobra
// definitions. Handlers stay framework-agnostic: they take parsed flags,
// wire the collaborating components, and return errors for main to map to
// exit codes. Construction goes through factory function variables so tests
// can swap in fakes without touching global state beyond the package.
package handlers

import (
	"context"
	"os"
	"sync"

	"github.com/opsmith/stackctl/internal/config"
	"github.com/opsmith/stackctl/internal/configure"
	"github.com/opsmith/stackctl/internal/creds"
	"github.com/opsmith/stackctl/internal/orchestrate"
	platformaws "github.com/opsmith/stackctl/internal/platform/aws"
	"github.com/opsmith/stackctl/internal/probe"
	"github.com/opsmith/stackctl/internal/provision"
	"github.com/opsmith/stackctl/internal/storage"
	"github.com/opsmith/stackctl/internal/ui/prompt"
	"github.com/opsmith/stackctl/internal/util/prerequisites"
	"github.com/opsmith/stackctl/internal/util/run"
)

// environmentRunner is the orchestrator surface the up and down handlers
// drive.
type environmentRunner interface {
	Up(ctx context.Context, opts orchestrate.UpOptions) error
	Down(ctx context.Context, opts orchestrate.DownOptions) error
}

// Factory function variables - can be replaced in tests.
var (
	loadConfigFile     = config.LoadFile
	findConfigFile     = config.FindConfigFile
	loadTimeouts       = config.LoadTimeouts
	checkPrerequisites = prerequisites.CheckDefault

	newOrchestrator = func(cfg *config.Config, overrides map[string]string, requiredSecrets []string) environmentRunner {
		return buildOrchestrator(cfg, overrides, requiredSecrets)
	}

	loadRunState = func(environment string) (*orchestrate.RunState, error) {
		return orchestrate.NewStateStore("").Load(environment)
	}
)

// loadConfig resolves the config path (explicit flag or the default file in
// the working directory) and loads it.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		found, err := findConfigFile()
		if err != nil {
			return nil, NewArgumentError(err)
		}
		path = found
	}
	return loadConfigFile(path)
}

// parseOverrides turns repeated --secret key=value flags into the highest
// precedence credential source.
func parseOverrides(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	overrides := make(map[string]string, len(raw))
	for _, item := range raw {
		key, value, err := creds.ParseOverride(item)
		if err != nil {
			return nil, NewArgumentError(err)
		}
		overrides[key] = value
	}
	return overrides, nil
}

// ensurePrerequisites fails fast when a required external tool is missing.
func ensurePrerequisites(cfg *config.Config) error {
	if cfg.PrerequisitesCheckEnabled != nil && !*cfg.PrerequisitesCheckEnabled {
		return nil
	}
	return checkPrerequisites().Error()
}

// buildOrchestrator wires the real components. requiredSecrets narrows the
// required credential set (the down path only needs the cloud pair); nil
// keeps the default.
func buildOrchestrator(cfg *config.Config, overrides map[string]string, requiredSecrets []string) *orchestrate.Orchestrator {
	timeouts := loadTimeouts()
	runner := &run.ExecRunner{Timeout: timeouts.Tool, Stream: os.Stderr}

	return &orchestrate.Orchestrator{
		Config:   cfg,
		Observer: orchestrate.ConsoleObserver{},
		States:   orchestrate.NewStateStore(""),
		ResolveCredentials: func(ctx context.Context) (*creds.Credentials, error) {
			remote := &lazySecretReader{region: cfg.Storage.Region}
			resolver := &creds.Resolver{
				Sources:  creds.DefaultSources(overrides, cfg.SecretsFile, remote, cfg.Storage.SecretPrefix),
				Required: requiredSecrets,
			}
			return resolver.Resolve(ctx)
		},
		NewStorage: func(credentials *creds.Credentials) orchestrate.StorageReconciler {
			return &awsStorage{cfg: cfg, credentials: credentials, timeouts: timeouts}
		},
		NewProvisioner: func(credentials *creds.Credentials) orchestrate.Provisioner {
			return provision.NewDriver(cfg, runner, credentials)
		},
		NewConfigurer: func() orchestrate.Configurer {
			return configure.NewDriver(cfg, runner)
		},
		NewProber: func(credentials *creds.Credentials) orchestrate.ReadinessProber {
			return probe.New(cfg, timeouts, credentials)
		},
		Confirm: prompt.TypedConfirmer{},
	}
}

// lazySecretReader builds the SSM client on first use, with the SDK's
// default credential chain. The remote store is the lowest precedence
// source, so by the time it is consulted the cloud credentials either came
// from the environment (which the chain sees too) or resolution was going
// to fail anyway.
type lazySecretReader struct {
	region string

	mu     sync.Mutex
	client *platformaws.SSMClient
}

func (r *lazySecretReader) ReadSecrets(ctx context.Context, prefix string) (map[string]string, error) {
	r.mu.Lock()
	if r.client == nil {
		awsCfg, err := platformaws.NewConfig(ctx, r.region, "", "")
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		r.client = platformaws.NewSSMClient(awsCfg)
	}
	client := r.client
	r.mu.Unlock()

	return client.ReadSecrets(ctx, prefix)
}

// awsStorage adapts the storage reconciler to the orchestrator, deferring
// AWS client construction until the first call so the resolved credentials
// are in hand.
type awsStorage struct {
	cfg         *config.Config
	credentials *creds.Credentials
	timeouts    *config.Timeouts

	mu         sync.Mutex
	reconciler *storage.Reconciler
}

func (s *awsStorage) get(ctx context.Context) (*storage.Reconciler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reconciler != nil {
		return s.reconciler, nil
	}

	accessKey, _ := s.credentials.Get(creds.KeyAWSAccessKeyID)
	secretKey, _ := s.credentials.Get(creds.KeyAWSSecretAccessKey)
	awsCfg, err := platformaws.NewConfig(ctx, s.cfg.Storage.Region, accessKey, secretKey)
	if err != nil {
		return nil, err
	}
	s.reconciler = storage.FromConfig(s.cfg.Storage, awsCfg, s.timeouts)
	return s.reconciler, nil
}

func (s *awsStorage) Ensure(ctx context.Context) (*storage.Handle, error) {
	r, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	return r.Ensure(ctx)
}

func (s *awsStorage) Delete(ctx context.Context) error {
	r, err := s.get(ctx)
	if err != nil {
		return err
	}
	return r.Delete(ctx)
}
