package provision

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsmith/stackctl/internal/config"
	"github.com/opsmith/stackctl/internal/creds"
	"github.com/opsmith/stackctl/internal/util/run"
)

// fakeRunner scripts results per leading terraform subcommand.
type fakeRunner struct {
	results  map[string]*run.Result
	commands []run.Command
}

func (f *fakeRunner) Run(_ context.Context, cmd run.Command) (*run.Result, error) {
	f.commands = append(f.commands, cmd)
	if res, ok := f.results[cmd.Args[0]]; ok {
		return res, nil
	}
	return &run.Result{}, nil
}

func (f *fakeRunner) argv(i int) string {
	return strings.Join(f.commands[i].Args, " ")
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:  "staging",
		TerraformDir: "infra",
		Vars:         map[string]string{"instance_type": "t3.medium", "app_count": "2"},
		Targets: []config.TargetSpec{
			{Role: "ci", AddressOutput: "ci_public_ip", Probe: config.ProbeSSH, Port: 22},
			{Role: "app", AddressOutput: "app_public_ip", Probe: config.ProbeHTTP, Port: 8080, Path: "/healthz"},
		},
		Storage: config.StorageSpec{
			Bucket:       "acme-tfstate",
			LockTable:    "acme-tflock",
			SecretPrefix: "/stackctl/staging",
			Region:       "eu-west-1",
		},
	}
}

func testCreds() *creds.Credentials {
	return creds.NewCredentials(map[string]creds.Entry{
		creds.KeyAWSAccessKeyID:     {Value: "AKIA", Provenance: creds.ProvenanceEnv},
		creds.KeyAWSSecretAccessKey: {Value: "shh", Provenance: creds.ProvenanceEnv},
	})
}

const outputsJSON = `{
  "ci_public_ip":  {"value": "10.0.1.5"},
  "app_public_ip": {"value": "10.0.1.6"},
  "unrelated":     {"value": 42}
}`

func TestApply_Success(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{results: map[string]*run.Result{
		"plan":   {ExitCode: 2}, // changes present: non-fatal
		"output": {Stdout: outputsJSON},
	}}
	driver := NewDriver(testConfig(), runner, testCreds())

	targets, err := driver.Apply(context.Background())
	require.NoError(t, err)

	require.Len(t, targets, 2)
	assert.Equal(t, "ci", targets[0].Role)
	assert.Equal(t, "10.0.1.5", targets[0].Address)
	assert.Equal(t, StatusUnknown, targets[0].Status)
	assert.Equal(t, "10.0.1.6", targets[1].Address)
	assert.Equal(t, "/healthz", targets[1].Path)

	// init -> plan -> apply -> output
	require.Len(t, runner.commands, 4)
	assert.Contains(t, runner.argv(0), "init")
	assert.Contains(t, runner.argv(0), "-backend-config=bucket=acme-tfstate")
	assert.Contains(t, runner.argv(0), "-backend-config=key=staging/terraform.tfstate")
	assert.Contains(t, runner.argv(0), "-backend-config=dynamodb_table=acme-tflock")
	assert.Contains(t, runner.argv(1), "plan -input=false -detailed-exitcode")
	assert.Contains(t, runner.argv(2), "apply -input=false -auto-approve")
	assert.Contains(t, runner.argv(3), "output -json")
}

func TestApply_VarsPassedSortedViaArgv(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{results: map[string]*run.Result{"output": {Stdout: outputsJSON}}}
	driver := NewDriver(testConfig(), runner, testCreds())

	_, err := driver.Apply(context.Background())
	require.NoError(t, err)

	planArgs := runner.argv(1)
	assert.Contains(t, planArgs, "-var app_count=2")
	assert.Contains(t, planArgs, "-var instance_type=t3.medium")
	assert.Less(t, strings.Index(planArgs, "app_count"), strings.Index(planArgs, "instance_type"))
}

func TestApply_CredentialsInEnvNotArgv(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{results: map[string]*run.Result{"output": {Stdout: outputsJSON}}}
	driver := NewDriver(testConfig(), runner, testCreds())

	_, err := driver.Apply(context.Background())
	require.NoError(t, err)

	for _, cmd := range runner.commands {
		assert.NotContains(t, strings.Join(cmd.Args, " "), "shh")
		assert.Contains(t, cmd.Env, "AWS_SECRET_ACCESS_KEY=shh")
		assert.Contains(t, cmd.Env, "TF_IN_AUTOMATION=1")
		assert.Equal(t, "infra", cmd.Dir)
	}
}

func TestApply_InitFailure(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{results: map[string]*run.Result{
		"init": {ExitCode: 1, Tail: []string{"Error: backend not reachable"}},
	}}
	driver := NewDriver(testConfig(), runner, testCreds())

	_, err := driver.Apply(context.Background())

	var pErr *Error
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, StageInit, pErr.Stage)
	assert.Equal(t, 1, pErr.ExitCode)
	assert.Contains(t, pErr.Tail(), "backend not reachable")
	// Later stages never ran.
	assert.Len(t, runner.commands, 1)
}

func TestApply_LockContentionSurfacedDistinctly(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{results: map[string]*run.Result{
		"plan": {ExitCode: 1, Tail: []string{
			"Error: Error acquiring the state lock",
			"Lock Info:",
			"  ID: 1234",
		}},
	}}
	driver := NewDriver(testConfig(), runner, testCreds())

	_, err := driver.Apply(context.Background())

	var pErr *Error
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, StageLocked, pErr.Stage)
	assert.Contains(t, pErr.Error(), "locked by another run")
}

func TestPlan_ReportsChanges(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]*run.Result{"plan": {ExitCode: 2}}}
	changes, err := NewDriver(testConfig(), runner, testCreds()).Plan(context.Background())
	require.NoError(t, err)
	assert.True(t, changes)

	runner = &fakeRunner{results: map[string]*run.Result{"plan": {ExitCode: 0}}}
	changes, err = NewDriver(testConfig(), runner, testCreds()).Plan(context.Background())
	require.NoError(t, err)
	assert.False(t, changes)
}

func TestPlanDestroy_ReportsRemovalsWithoutDestroying(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{results: map[string]*run.Result{"plan": {ExitCode: 2}}}
	driver := NewDriver(testConfig(), runner, testCreds())

	removals, err := driver.PlanDestroy(context.Background())
	require.NoError(t, err)
	assert.True(t, removals)

	// init then a destroy-mode plan; no apply, no destroy, no plan file.
	require.Len(t, runner.commands, 2)
	assert.Contains(t, runner.argv(1), "plan -destroy -input=false -detailed-exitcode")
	assert.NotContains(t, runner.argv(1), "-out=")
}

func TestDestroy_Success(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{}
	require.NoError(t, NewDriver(testConfig(), runner, testCreds()).Destroy(context.Background()))

	require.Len(t, runner.commands, 2)
	assert.Contains(t, runner.argv(1), "destroy -input=false -auto-approve")
}

func TestDestroy_FailureNoRollback(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{results: map[string]*run.Result{
		"destroy": {ExitCode: 1, Tail: []string{"Error: dependency violation", "2 resources remain"}},
	}}

	err := NewDriver(testConfig(), runner, testCreds()).Destroy(context.Background())

	var pErr *Error
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, StageDestroy, pErr.Stage)
	assert.Contains(t, pErr.Tail(), "2 resources remain")
	// destroy was the last call: no rollback invocations follow
	assert.Len(t, runner.commands, 2)
}

func TestOutputs_MissingKey(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{results: map[string]*run.Result{
		"output": {Stdout: `{"ci_public_ip": {"value": "10.0.1.5"}}`},
	}}

	_, err := NewDriver(testConfig(), runner, testCreds()).Outputs(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"app_public_ip"`)
}

func TestOutputs_NonStringValue(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{results: map[string]*run.Result{
		"output": {Stdout: `{"ci_public_ip": {"value": 7}, "app_public_ip": {"value": "10.0.1.6"}}`},
	}}

	_, err := NewDriver(testConfig(), runner, testCreds()).Outputs(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-empty string")
}

func TestOutputs_Timeout(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{results: map[string]*run.Result{
		"output": {ExitCode: -1, TimedOut: true},
	}}

	_, err := NewDriver(testConfig(), runner, testCreds()).Outputs(context.Background())

	var pErr *Error
	require.ErrorAs(t, err, &pErr)
	assert.True(t, pErr.TimedOut)
	assert.Contains(t, pErr.Error(), "time limit")
}

func TestTargetEndpoint(t *testing.T) {
	t.Parallel()
	target := Target{Address: "10.0.1.5", Port: 22}
	assert.Equal(t, "10.0.1.5:22", target.Endpoint())
}
