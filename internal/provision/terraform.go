package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sort"
	"strconv"

	"github.com/opsmith/stackctl/internal/config"
	"github.com/opsmith/stackctl/internal/creds"
	"github.com/opsmith/stackctl/internal/util/run"
)

// planExitChanges is terraform's -detailed-exitcode status for "plan
// succeeded, changes present". Non-fatal when merely planning.
const planExitChanges = 2

// Driver sequences terraform init/plan/apply/destroy/output for one
// environment. All invocations go through the injected Runner so tests never
// spawn subprocesses.
type Driver struct {
	cfg         *config.Config
	runner      run.Runner
	credentials *creds.Credentials
}

// NewDriver builds a provisioning driver. Credentials are injected into the
// tool's subprocess environment only; they never appear in argv.
func NewDriver(cfg *config.Config, runner run.Runner, credentials *creds.Credentials) *Driver {
	return &Driver{cfg: cfg, runner: runner, credentials: credentials}
}

// Apply converges the environment: init, plan, apply, then parse outputs into
// target records. Calling Apply twice with an unchanged configuration yields
// the same target set; "no changes" is success.
func (d *Driver) Apply(ctx context.Context) ([]Target, error) {
	if err := d.init(ctx); err != nil {
		return nil, err
	}
	if _, err := d.plan(ctx); err != nil {
		return nil, err
	}
	if err := d.apply(ctx); err != nil {
		return nil, err
	}
	return d.Outputs(ctx)
}

// Plan runs init and plan only, reporting whether changes are pending.
// Used by dry-run mode.
func (d *Driver) Plan(ctx context.Context) (changes bool, err error) {
	if err := d.init(ctx); err != nil {
		return false, err
	}
	return d.plan(ctx)
}

// PlanDestroy runs init and a destroy-mode plan, reporting whether resources
// would be removed. Used by down's dry-run mode; nothing is destroyed.
func (d *Driver) PlanDestroy(ctx context.Context) (removals bool, err error) {
	if err := d.init(ctx); err != nil {
		return false, err
	}
	args := append([]string{"plan", "-destroy", "-input=false", "-detailed-exitcode"}, d.varArgs()...)
	return d.runPlan(ctx, args)
}

// Destroy tears the environment down. On failure no rollback is attempted;
// the caller reports which resources remain and the operator re-runs.
func (d *Driver) Destroy(ctx context.Context) error {
	if err := d.init(ctx); err != nil {
		return err
	}

	args := append([]string{"destroy", "-input=false", "-auto-approve"}, d.varArgs()...)
	res, err := d.run(ctx, args)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return d.stageError(StageDestroy, res)
	}
	return nil
}

// Outputs reads the tool's structured outputs and maps each declared target
// spec's address output to a target record.
func (d *Driver) Outputs(ctx context.Context) ([]Target, error) {
	res, err := d.runCaptured(ctx, []string{"output", "-json"})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, d.stageError(StageOutput, res)
	}

	var outputs map[string]struct {
		Value any `json:"value"`
	}
	if err := json.Unmarshal([]byte(res.Stdout), &outputs); err != nil {
		return nil, fmt.Errorf("failed to parse terraform outputs: %w", err)
	}

	targets := make([]Target, 0, len(d.cfg.Targets))
	for _, spec := range d.cfg.Targets {
		out, ok := outputs[spec.AddressOutput]
		if !ok {
			return nil, fmt.Errorf("terraform output %q for role %s not found", spec.AddressOutput, spec.Role)
		}
		address, ok := out.Value.(string)
		if !ok || address == "" {
			return nil, fmt.Errorf("terraform output %q for role %s is not a non-empty string", spec.AddressOutput, spec.Role)
		}
		targets = append(targets, Target{
			Role:    spec.Role,
			Address: address,
			Status:  StatusUnknown,
			Probe:   spec.Probe,
			Port:    spec.Port,
			Path:    spec.Path,
		})
	}

	return targets, nil
}

func (d *Driver) init(ctx context.Context) error {
	args := []string{
		"init", "-input=false",
		"-backend-config=bucket=" + d.cfg.Storage.Bucket,
		"-backend-config=key=" + d.cfg.Environment + "/terraform.tfstate",
		"-backend-config=region=" + d.cfg.Storage.Region,
		"-backend-config=dynamodb_table=" + d.cfg.Storage.LockTable,
	}
	res, err := d.run(ctx, args)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return d.stageError(StageInit, res)
	}
	return nil
}

func (d *Driver) plan(ctx context.Context) (changes bool, err error) {
	args := append([]string{"plan", "-input=false", "-detailed-exitcode", "-out=stackctl.tfplan"}, d.varArgs()...)
	return d.runPlan(ctx, args)
}

func (d *Driver) runPlan(ctx context.Context, args []string) (bool, error) {
	res, err := d.run(ctx, args)
	if err != nil {
		return false, err
	}
	switch res.ExitCode {
	case 0:
		return false, nil
	case planExitChanges:
		return true, nil
	default:
		return false, d.stageError(StagePlan, res)
	}
}

func (d *Driver) apply(ctx context.Context) error {
	res, err := d.run(ctx, []string{"apply", "-input=false", "-auto-approve", "stackctl.tfplan"})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return d.stageError(StageApply, res)
	}
	return nil
}

// varArgs renders the opaque passthrough vars, sorted for stable argv.
func (d *Driver) varArgs() []string {
	keys := make([]string, 0, len(d.cfg.Vars))
	for k := range d.cfg.Vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, "-var", k+"="+d.cfg.Vars[k])
	}
	return args
}

func (d *Driver) run(ctx context.Context, args []string) (*run.Result, error) {
	return d.runner.Run(ctx, d.command(args, false))
}

func (d *Driver) runCaptured(ctx context.Context, args []string) (*run.Result, error) {
	return d.runner.Run(ctx, d.command(args, true))
}

func (d *Driver) command(args []string, capture bool) run.Command {
	env := []string{"TF_IN_AUTOMATION=1"}
	if d.credentials != nil {
		env = append(env, d.credentials.AWSEnv()...)
	}
	return run.Command{
		Name:          "terraform",
		Args:          args,
		Dir:           d.cfg.TerraformDir,
		Env:           env,
		CaptureStdout: capture,
	}
}

func (d *Driver) stageError(stage Stage, res *run.Result) error {
	if detectLock(res.Tail) {
		stage = StageLocked
	}
	return &Error{
		Stage:    stage,
		ExitCode: res.ExitCode,
		Output:   res.Tail,
		TimedOut: res.TimedOut,
	}
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
