package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opsmith/stackctl/internal/config"
	"github.com/opsmith/stackctl/internal/creds"
	"github.com/opsmith/stackctl/internal/provision"
	"github.com/opsmith/stackctl/internal/util/async"
	"github.com/opsmith/stackctl/internal/util/retry"
)

// TimeoutError reports that one target never turned ready within its budget.
type TimeoutError struct {
	Target  string
	Elapsed time.Duration
	Last    error
}

func (e *TimeoutError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("target %s not ready after %v: %v", e.Target, e.Elapsed.Round(time.Second), e.Last)
	}
	return fmt.Sprintf("target %s not ready after %v", e.Target, e.Elapsed.Round(time.Second))
}

func (e *TimeoutError) Unwrap() error { return e.Last }

// Prober polls every target until ready or until the per-target budget runs
// out. Each target's status is written by exactly one goroutine.
type Prober struct {
	Interval    time.Duration
	Timeout     time.Duration
	SettleDelay time.Duration

	probes map[config.ProbeKind]Probe
}

// New builds a prober from the loaded timeouts and the resolved credentials.
// The SSH probe authenticates with the resolved deployment key.
func New(cfg *config.Config, timeouts *config.Timeouts, credentials *creds.Credentials) *Prober {
	keyPath, _ := credentials.Get(creds.KeySSHKeyPath)

	return &Prober{
		Interval:    timeouts.ProbeInterval,
		Timeout:     timeouts.Ready,
		SettleDelay: timeouts.SettleDelay,
		probes: map[config.ProbeKind]Probe{
			config.ProbeTCP:  &TCPProbe{DialTimeout: timeouts.ProbeDial},
			config.ProbeHTTP: &HTTPProbe{DialTimeout: timeouts.ProbeDial},
			config.ProbeSSH: &SSHProbe{
				User:        cfg.SSHUser,
				KeyPath:     keyPath,
				DialTimeout: timeouts.ProbeDial,
			},
		},
	}
}

// WaitReady polls all targets concurrently. A target that answers is marked
// ready; a target that exhausts the budget is marked failed and contributes a
// TimeoutError. One target failing does not cancel the others, but WaitReady
// fails if any target does. After every target is ready the settle delay is
// applied once before returning.
func (p *Prober) WaitReady(ctx context.Context, targets []provision.Target) error {
	tasks := make([]async.Task, 0, len(targets))
	for i := range targets {
		target := &targets[i]
		tasks = append(tasks, async.Task{
			Name: target.Role,
			Func: func(ctx context.Context) error {
				return p.waitOne(ctx, target)
			},
		})
	}

	if err := joinByTarget(async.RunAll(ctx, tasks), targets); err != nil {
		return err
	}

	if p.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.SettleDelay):
		}
	}
	return nil
}

// CheckOnce probes every target exactly once, concurrently. Used by the
// verify phase after configuration: targets that stopped answering are marked
// failed and reported, without any waiting.
func (p *Prober) CheckOnce(ctx context.Context, targets []provision.Target) error {
	tasks := make([]async.Task, 0, len(targets))
	for i := range targets {
		target := &targets[i]
		tasks = append(tasks, async.Task{
			Name: target.Role,
			Func: func(ctx context.Context) error {
				probe, err := p.probeFor(target)
				if err != nil {
					target.Status = provision.StatusFailed
					return err
				}
				if err := probe.Check(ctx, target); err != nil {
					target.Status = provision.StatusFailed
					return fmt.Errorf("target %s: %w", target.Role, err)
				}
				target.Status = provision.StatusReady
				return nil
			},
		})
	}

	return joinByTarget(async.RunAll(ctx, tasks), targets)
}

// joinByTarget orders the collected failures by target declaration order so
// reports are stable across runs.
func joinByTarget(failures map[string]error, targets []provision.Target) error {
	if len(failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(failures))
	for i := range targets {
		if err, ok := failures[targets[i].Role]; ok {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Prober) waitOne(ctx context.Context, target *provision.Target) error {
	probe, err := p.probeFor(target)
	if err != nil {
		target.Status = provision.StatusFailed
		return err
	}

	start := time.Now()
	err = retry.Poll(ctx, p.Interval, p.Timeout, func(ctx context.Context) error {
		if err := probe.Check(ctx, target); err != nil {
			target.Status = provision.StatusUnreachable
			return err
		}
		return nil
	})
	if err != nil {
		target.Status = provision.StatusFailed
		var deadline *retry.DeadlineExceededError
		if errors.As(err, &deadline) {
			return &TimeoutError{Target: target.Role, Elapsed: time.Since(start), Last: deadline.Last}
		}
		return fmt.Errorf("target %s: %w", target.Role, err)
	}

	target.Status = provision.StatusReady
	return nil
}

func (p *Prober) probeFor(target *provision.Target) (Probe, error) {
	probe, ok := p.probes[target.Probe]
	if !ok {
		return nil, retry.Fatal(fmt.Errorf("target %s: unknown probe kind %q", target.Role, target.Probe))
	}
	return probe, nil
}
