package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opsmith/stackctl/internal/config"
	"github.com/opsmith/stackctl/internal/creds"
	"github.com/opsmith/stackctl/internal/provision"
	"github.com/opsmith/stackctl/internal/storage"
)

// Provisioner is the provisioning driver surface the orchestrator needs.
type Provisioner interface {
	Plan(ctx context.Context) (bool, error)
	PlanDestroy(ctx context.Context) (bool, error)
	Apply(ctx context.Context) ([]provision.Target, error)
	Destroy(ctx context.Context) error
}

// Configurer is the configuration driver surface the orchestrator needs.
type Configurer interface {
	Converge(ctx context.Context, targets []provision.Target, credentials *creds.Credentials) error
	SyntaxCheck(ctx context.Context, targets []provision.Target, credentials *creds.Credentials) error
}

// ReadinessProber waits for targets and re-checks them during verification.
type ReadinessProber interface {
	WaitReady(ctx context.Context, targets []provision.Target) error
	CheckOnce(ctx context.Context, targets []provision.Target) error
}

// StorageReconciler converges and tears down the durable storage resources.
type StorageReconciler interface {
	Ensure(ctx context.Context) (*storage.Handle, error)
	Delete(ctx context.Context) error
}

// Confirmer obtains a typed confirmation phrase from the operator. False with
// a nil error means the operator declined: the destructive path is cancelled,
// not failed. An error means the question could not be asked.
type Confirmer interface {
	ConfirmPhrase(summary, phrase string) (bool, error)
}

// UpOptions modify one up run.
type UpOptions struct {
	// DryRun reports intended actions (plan, target list, playbook syntax
	// check) without mutating anything or persisting state.
	DryRun bool

	// SkipProvision reuses the target addresses recorded by a previous run
	// instead of invoking the provisioning tool.
	SkipProvision bool

	// SkipConfigure ends the run after readiness, leaving playbooks unrun.
	SkipConfigure bool
}

// DownOptions modify one down run.
type DownOptions struct {
	// DryRun reports what a destroy would remove (via a destroy-mode plan)
	// without executing it or asking for confirmation.
	DryRun bool

	// Force bypasses the typed confirmations. Required in non-interactive
	// sessions.
	Force bool

	// DeleteStorage also removes the state bucket, lock table and remote
	// secret namespace after compute is destroyed.
	DeleteStorage bool
}

// Orchestrator drives the phase machines. Collaborators that depend on
// resolved credentials are built through factories so a run constructs them
// exactly once, after resolution succeeds.
type Orchestrator struct {
	Config   *config.Config
	Observer Observer
	States   *StateStore

	ResolveCredentials func(ctx context.Context) (*creds.Credentials, error)
	NewStorage         func(credentials *creds.Credentials) StorageReconciler
	NewProvisioner     func(credentials *creds.Credentials) Provisioner
	NewConfigurer      func() Configurer
	NewProber          func(credentials *creds.Credentials) ReadinessProber
	Confirm            Confirmer
}

// Up advances the environment to its converged state. Phases run strictly
// forward; the first failure is terminal and reported as a PhaseError naming
// the failed phase and the resume command.
func (o *Orchestrator) Up(ctx context.Context, opts UpOptions) error {
	env := o.Config.Environment
	state := NewRunState(env)

	previous, err := o.States.Load(env)
	if err != nil {
		return err
	}

	// Phase: credentials. Resolution is read-only and runs even in dry-run
	// mode so later phases can report against real settings.
	phaseStarted(o.Observer, PhaseCredentialsResolved)
	start := time.Now()
	credentials, err := o.ResolveCredentials(ctx)
	if err != nil {
		return o.fail(state, opts.DryRun, PhaseCredentialsResolved, err)
	}
	o.record(state, opts.DryRun, PhaseCredentialsResolved, OutcomeSuccess)
	phaseCompleted(o.Observer, PhaseCredentialsResolved, time.Since(start))

	provisioner := o.NewProvisioner(credentials)

	// Phase: provisioned.
	targets, err := o.provisionPhase(ctx, opts, state, previous, provisioner, o.NewStorage(credentials))
	if err != nil {
		return err
	}

	// Phase: ready.
	prober := o.NewProber(credentials)
	if opts.DryRun {
		for i := range targets {
			o.Observer.Event(Event{
				Type:    EventDryRun,
				Phase:   PhaseReady,
				Message: fmt.Sprintf("would wait for target %s", targets[i].Role),
			})
		}
		phaseSkipped(o.Observer, PhaseReady, "dry-run")
		o.record(state, opts.DryRun, PhaseReady, OutcomeSkipped)
	} else {
		phaseStarted(o.Observer, PhaseReady)
		start = time.Now()
		if err := prober.WaitReady(ctx, targets); err != nil {
			return o.fail(state, opts.DryRun, PhaseReady, err)
		}
		for i := range targets {
			o.Observer.Event(Event{
				Type:    EventTargetReady,
				Phase:   PhaseReady,
				Message: targets[i].Role,
				Fields:  map[string]string{"address": targets[i].Address},
			})
		}
		state.Targets = targets
		o.record(state, opts.DryRun, PhaseReady, OutcomeSuccess)
		phaseCompleted(o.Observer, PhaseReady, time.Since(start))
	}

	// Phase: configured.
	configurer := o.NewConfigurer()
	switch {
	case opts.SkipConfigure:
		phaseSkipped(o.Observer, PhaseConfigured, "skip-configure")
		o.record(state, opts.DryRun, PhaseConfigured, OutcomeSkipped)
	case opts.DryRun:
		if err := configurer.SyntaxCheck(ctx, targets, credentials); err != nil {
			return o.fail(state, opts.DryRun, PhaseConfigured, err)
		}
		phaseSkipped(o.Observer, PhaseConfigured, "dry-run: playbook syntax verified")
		o.record(state, opts.DryRun, PhaseConfigured, OutcomeSkipped)
	default:
		phaseStarted(o.Observer, PhaseConfigured)
		start = time.Now()
		if err := configurer.Converge(ctx, targets, credentials); err != nil {
			return o.fail(state, opts.DryRun, PhaseConfigured, err)
		}
		o.record(state, opts.DryRun, PhaseConfigured, OutcomeSuccess)
		phaseCompleted(o.Observer, PhaseConfigured, time.Since(start))
	}

	// Phase: verified. One final probe pass across all targets.
	if opts.DryRun || opts.SkipConfigure {
		phaseSkipped(o.Observer, PhaseVerified, "nothing to verify")
		o.record(state, opts.DryRun, PhaseVerified, OutcomeSkipped)
		return nil
	}
	phaseStarted(o.Observer, PhaseVerified)
	start = time.Now()
	if err := prober.CheckOnce(ctx, targets); err != nil {
		return o.fail(state, opts.DryRun, PhaseVerified, err)
	}
	state.Targets = targets
	o.record(state, opts.DryRun, PhaseVerified, OutcomeSuccess)
	phaseCompleted(o.Observer, PhaseVerified, time.Since(start))

	o.Observer.Printf("environment %s is up: %s", env, summarizeTargets(targets))
	return nil
}

func (o *Orchestrator) provisionPhase(ctx context.Context, opts UpOptions, state, previous *RunState, provisioner Provisioner, store StorageReconciler) ([]provision.Target, error) {
	if opts.SkipProvision {
		if previous == nil || len(previous.Targets) == 0 {
			err := errors.New("no recorded targets to resume from; run a full `stackctl up` first")
			return nil, o.fail(state, opts.DryRun, PhaseProvisioned, err)
		}
		phaseSkipped(o.Observer, PhaseProvisioned, "skip-provision: reusing recorded addresses")
		state.Targets = previous.Targets
		o.record(state, opts.DryRun, PhaseProvisioned, OutcomeSkipped)
		return previous.Targets, nil
	}

	if opts.DryRun {
		o.Observer.Event(Event{
			Type:    EventDryRun,
			Phase:   PhaseProvisioned,
			Message: "would ensure state bucket and lock table",
			Fields: map[string]string{
				"bucket":     o.Config.Storage.Bucket,
				"lock_table": o.Config.Storage.LockTable,
			},
		})
		changes, err := provisioner.Plan(ctx)
		if err != nil {
			return nil, o.fail(state, opts.DryRun, PhaseProvisioned, err)
		}
		msg := "plan: no infrastructure changes"
		if changes {
			msg = "plan: infrastructure changes pending"
		}
		o.Observer.Event(Event{Type: EventDryRun, Phase: PhaseProvisioned, Message: msg})
		phaseSkipped(o.Observer, PhaseProvisioned, "dry-run")
		o.record(state, opts.DryRun, PhaseProvisioned, OutcomeSkipped)
		return o.declaredTargets(previous), nil
	}

	phaseStarted(o.Observer, PhaseProvisioned)
	start := time.Now()
	if _, err := store.Ensure(ctx); err != nil {
		return nil, o.fail(state, opts.DryRun, PhaseProvisioned, err)
	}
	targets, err := provisioner.Apply(ctx)
	if err != nil {
		return nil, o.fail(state, opts.DryRun, PhaseProvisioned, err)
	}
	state.Targets = targets
	o.record(state, opts.DryRun, PhaseProvisioned, OutcomeSuccess)
	phaseCompleted(o.Observer, PhaseProvisioned, time.Since(start))
	return targets, nil
}

// Down destroys compute and, only behind a second confirmation, storage.
// A declined confirmation cancels the run without error and touches nothing.
// Destroy failures never roll back: partial teardown is reported as-is.
func (o *Orchestrator) Down(ctx context.Context, opts DownOptions) error {
	env := o.Config.Environment

	if opts.DryRun {
		return o.downDryRun(ctx, opts)
	}

	if !opts.Force {
		summary := fmt.Sprintf("This destroys all compute for environment %q. Durable storage is kept.", env)
		confirmed, err := o.Confirm.ConfirmPhrase(summary, "destroy "+env)
		if err != nil {
			return err
		}
		if !confirmed {
			o.Observer.Printf("destroy of %s cancelled; no resources were touched", env)
			return nil
		}
	}

	credentials, err := o.ResolveCredentials(ctx)
	if err != nil {
		return err
	}

	o.Observer.Printf("destroying environment %s", env)
	if err := o.NewProvisioner(credentials).Destroy(ctx); err != nil {
		return err
	}
	if err := o.States.Clear(env); err != nil {
		return err
	}
	o.Observer.Printf("environment %s destroyed", env)

	if !opts.DeleteStorage {
		return nil
	}

	if !opts.Force {
		summary := fmt.Sprintf("This permanently deletes the state bucket, lock table and secret namespace for %q.", env)
		confirmed, err := o.Confirm.ConfirmPhrase(summary, "delete storage "+env)
		if err != nil {
			return err
		}
		if !confirmed {
			o.Observer.Printf("storage deletion cancelled; storage for %s kept", env)
			return nil
		}
	}
	if err := o.NewStorage(credentials).Delete(ctx); err != nil {
		return err
	}
	o.Observer.Printf("storage for environment %s deleted", env)
	return nil
}

// downDryRun reports the destroy intent without confirmation: nothing
// destructive happens, so there is nothing to confirm.
func (o *Orchestrator) downDryRun(ctx context.Context, opts DownOptions) error {
	credentials, err := o.ResolveCredentials(ctx)
	if err != nil {
		return err
	}

	removals, err := o.NewProvisioner(credentials).PlanDestroy(ctx)
	if err != nil {
		return err
	}
	msg := "destroy plan: nothing to remove"
	if removals {
		msg = "destroy plan: resources would be removed"
	}
	o.Observer.Event(Event{Type: EventDryRun, Message: msg})

	if opts.DeleteStorage {
		o.Observer.Event(Event{
			Type:    EventDryRun,
			Message: "would delete state bucket, lock table and secret namespace",
			Fields: map[string]string{
				"bucket":     o.Config.Storage.Bucket,
				"lock_table": o.Config.Storage.LockTable,
			},
		})
	}
	return nil
}

func (o *Orchestrator) fail(state *RunState, dryRun bool, phase Phase, err error) error {
	phaseFailed(o.Observer, phase, err)
	o.record(state, dryRun, phase, OutcomeFailure)
	return &PhaseError{Phase: phase, Err: err}
}

// record appends a phase outcome and persists it. Recording follows the
// machine's own ordering, so a Record error here is a bug; it is surfaced
// through the observer rather than masking the run's real outcome.
func (o *Orchestrator) record(state *RunState, dryRun bool, phase Phase, outcome Outcome) {
	if err := state.Record(phase, outcome); err != nil {
		o.Observer.Printf("state error: %v", err)
		return
	}
	if dryRun {
		return
	}
	if err := o.States.Save(state); err != nil {
		o.Observer.Printf("state error: %v", err)
	}
}

// declaredTargets synthesizes the target list for dry-run reporting: recorded
// addresses when a previous run left them, declared roles otherwise.
func (o *Orchestrator) declaredTargets(previous *RunState) []provision.Target {
	if previous != nil && len(previous.Targets) > 0 {
		return previous.Targets
	}
	targets := make([]provision.Target, 0, len(o.Config.Targets))
	for _, spec := range o.Config.Targets {
		targets = append(targets, provision.Target{
			Role:   spec.Role,
			Status: provision.StatusUnknown,
			Probe:  spec.Probe,
			Port:   spec.Port,
			Path:   spec.Path,
		})
	}
	return targets
}

func summarizeTargets(targets []provision.Target) string {
	parts := make([]string, 0, len(targets))
	for i := range targets {
		parts = append(parts, fmt.Sprintf("%s=%s (%s)", targets[i].Role, targets[i].Address, targets[i].Status))
	}
	return strings.Join(parts, ", ")
}
