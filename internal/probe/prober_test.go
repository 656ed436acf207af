package probe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsmith/stackctl/internal/config"
	"github.com/opsmith/stackctl/internal/creds"
	"github.com/opsmith/stackctl/internal/provision"
)

// scriptedProbe fails a configured number of times per role, then succeeds.
// A negative count never succeeds.
type scriptedProbe struct {
	mu       sync.Mutex
	failures map[string]int
	attempts map[string]int
}

func newScriptedProbe(failures map[string]int) *scriptedProbe {
	return &scriptedProbe{failures: failures, attempts: make(map[string]int)}
}

func (s *scriptedProbe) Check(_ context.Context, target *provision.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[target.Role]++
	if n := s.failures[target.Role]; n != 0 {
		if n > 0 {
			s.failures[target.Role]--
		}
		return errors.New("connection refused")
	}
	return nil
}

func (s *scriptedProbe) attemptsFor(role string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[role]
}

func testProber(p Probe) *Prober {
	return &Prober{
		Interval: 5 * time.Millisecond,
		Timeout:  100 * time.Millisecond,
		probes:   map[config.ProbeKind]Probe{config.ProbeTCP: p},
	}
}

func testTargets() []provision.Target {
	return []provision.Target{
		{Role: "ci", Address: "10.0.1.5", Port: 22, Probe: config.ProbeTCP, Status: provision.StatusUnknown},
		{Role: "app", Address: "10.0.1.6", Port: 8080, Probe: config.ProbeTCP, Status: provision.StatusUnknown},
	}
}

func TestWaitReady_AllTargetsTurnReady(t *testing.T) {
	t.Parallel()
	scripted := newScriptedProbe(map[string]int{"ci": 2, "app": 0})
	targets := testTargets()

	err := testProber(scripted).WaitReady(context.Background(), targets)
	require.NoError(t, err)

	assert.Equal(t, provision.StatusReady, targets[0].Status)
	assert.Equal(t, provision.StatusReady, targets[1].Status)
	assert.Equal(t, 3, scripted.attemptsFor("ci"))
}

func TestWaitReady_OneTimeoutDoesNotStopOthers(t *testing.T) {
	t.Parallel()
	scripted := newScriptedProbe(map[string]int{"ci": -1, "app": 1})
	targets := testTargets()

	err := testProber(scripted).WaitReady(context.Background(), targets)

	var tErr *TimeoutError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "ci", tErr.Target)
	assert.GreaterOrEqual(t, tErr.Elapsed, 100*time.Millisecond)

	assert.Equal(t, provision.StatusFailed, targets[0].Status)
	// The sibling still ran to completion.
	assert.Equal(t, provision.StatusReady, targets[1].Status)
	assert.Equal(t, 2, scripted.attemptsFor("app"))
}

func TestWaitReady_UnknownProbeKind(t *testing.T) {
	t.Parallel()
	targets := []provision.Target{{Role: "ci", Address: "10.0.1.5", Probe: config.ProbeKind("icmp")}}

	err := testProber(newScriptedProbe(nil)).WaitReady(context.Background(), targets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown probe kind "icmp"`)
	assert.Equal(t, provision.StatusFailed, targets[0].Status)
}

func TestWaitReady_SettleDelayAfterAllReady(t *testing.T) {
	t.Parallel()
	prober := testProber(newScriptedProbe(nil))
	prober.SettleDelay = 50 * time.Millisecond

	start := time.Now()
	require.NoError(t, prober.WaitReady(context.Background(), testTargets()))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitReady_NoSettleDelayOnFailure(t *testing.T) {
	t.Parallel()
	prober := testProber(newScriptedProbe(map[string]int{"ci": -1}))
	prober.SettleDelay = 10 * time.Second

	start := time.Now()
	err := prober.WaitReady(context.Background(), testTargets())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWaitReady_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := testProber(newScriptedProbe(map[string]int{"ci": -1, "app": -1})).WaitReady(ctx, testTargets())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckOnce_SingleAttemptPerTarget(t *testing.T) {
	t.Parallel()
	scripted := newScriptedProbe(map[string]int{"ci": -1})
	targets := testTargets()

	err := testProber(scripted).CheckOnce(context.Background(), targets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target ci")

	assert.Equal(t, provision.StatusFailed, targets[0].Status)
	assert.Equal(t, provision.StatusReady, targets[1].Status)
	assert.Equal(t, 1, scripted.attemptsFor("ci"))
	assert.Equal(t, 1, scripted.attemptsFor("app"))
}

func TestNew_WiresProbeKinds(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{SSHUser: "deploy"}
	timeouts := &config.Timeouts{
		Ready:         time.Minute,
		ProbeInterval: time.Second,
		SettleDelay:   time.Second,
		ProbeDial:     time.Second,
	}
	credentials := creds.NewCredentials(map[string]creds.Entry{
		creds.KeySSHKeyPath: {Value: "/home/op/.ssh/id_ed25519", Provenance: creds.ProvenanceEnv},
	})

	prober := New(cfg, timeouts, credentials)

	require.Contains(t, prober.probes, config.ProbeSSH)
	sshProbe, ok := prober.probes[config.ProbeSSH].(*SSHProbe)
	require.True(t, ok)
	assert.Equal(t, "deploy", sshProbe.User)
	assert.Equal(t, "/home/op/.ssh/id_ed25519", sshProbe.KeyPath)
	assert.Equal(t, time.Minute, prober.Timeout)
}
