package config

// DefaultConfigFile is the config file looked up when -c is not given.
const DefaultConfigFile = "stackctl.yaml"

// StateDir is the directory (relative to the working directory) where
// stackctl persists run state for resumption.
const StateDir = ".stackctl"

// ProbeKind selects how a target's readiness is checked.
type ProbeKind string

const (
	// ProbeTCP succeeds when a TCP connection to the target port opens.
	ProbeTCP ProbeKind = "tcp"
	// ProbeHTTP succeeds when an HTTP GET returns a status below 500.
	ProbeHTTP ProbeKind = "http"
	// ProbeSSH succeeds when an SSH handshake with the deployment key
	// completes. This is the default: configuration runs over SSH, so a
	// ready target is one that accepts an SSH session.
	ProbeSSH ProbeKind = "ssh"
)

// TargetSpec declares one compute node the environment expects and how to
// find and probe it after provisioning.
type TargetSpec struct {
	// Role is the logical role, e.g. "ci" or "app". Also used as the
	// inventory group name for playbook targeting.
	Role string `mapstructure:"role"`

	// AddressOutput is the Terraform output key holding the node's address.
	AddressOutput string `mapstructure:"address_output"`

	// Probe selects the readiness check. Defaults to ssh.
	Probe ProbeKind `mapstructure:"probe"`

	// Port is the probe port. Defaults to 22 for ssh, 80 for tcp/http.
	Port int `mapstructure:"port"`

	// Path is the HTTP probe request path. Defaults to "/".
	Path string `mapstructure:"path"`
}

// PlaybookSpec names one convergence playbook and the inventory group it
// applies to. Playbooks run in declared order.
type PlaybookSpec struct {
	// File is the playbook path, relative to PlaybookDir if not absolute.
	File string `mapstructure:"file"`

	// Group limits the playbook to one target role. Empty means all targets.
	Group string `mapstructure:"group"`
}

// StorageSpec names the durable out-of-band resources backing the
// environment. Their lifecycle is independent of the compute fleet.
type StorageSpec struct {
	// Bucket is the S3 bucket holding remote Terraform state.
	Bucket string `mapstructure:"bucket"`

	// LockTable is the DynamoDB table used for state locking.
	LockTable string `mapstructure:"lock_table"`

	// SecretPrefix is the SSM Parameter Store path holding this
	// environment's secrets, e.g. "/stackctl/staging".
	SecretPrefix string `mapstructure:"secret_prefix"`

	// Region is the AWS region for all storage resources.
	Region string `mapstructure:"region"`
}

// Config is one environment's full declaration.
type Config struct {
	// Environment is the unique environment name. It appears in resource
	// tags, the run-state filename, and destroy confirmation phrases.
	Environment string `mapstructure:"environment"`

	// TerraformDir is the Terraform root module directory.
	TerraformDir string `mapstructure:"terraform_dir"`

	// PlaybookDir is resolved against relative playbook paths.
	PlaybookDir string `mapstructure:"playbook_dir"`

	// Targets declares the expected compute nodes.
	Targets []TargetSpec `mapstructure:"targets"`

	// Playbooks run in order during the configure phase.
	Playbooks []PlaybookSpec `mapstructure:"playbooks"`

	// Vars are opaque key/value pairs passed through to Terraform as
	// -var arguments. stackctl never interprets them.
	Vars map[string]string `mapstructure:"vars"`

	// Storage names the remote state bucket, lock table and secret prefix.
	Storage StorageSpec `mapstructure:"storage"`

	// SecretsFile is an optional local YAML secrets source consulted
	// between the process environment and the remote store.
	SecretsFile string `mapstructure:"secrets_file"`

	// SSHUser is the login user for SSH probes and playbook connections.
	SSHUser string `mapstructure:"ssh_user"`

	// PrerequisitesCheckEnabled toggles the external-tool check before a
	// run. Defaults to enabled when unset.
	PrerequisitesCheckEnabled *bool `mapstructure:"prerequisites_check_enabled"`
}

// Target returns the spec for a role, or nil if the role is not declared.
func (c *Config) Target(role string) *TargetSpec {
	for i := range c.Targets {
		if c.Targets[i].Role == role {
			return &c.Targets[i]
		}
	}
	return nil
}
