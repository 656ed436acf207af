package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{
		Environment: "staging",
		Targets: []TargetSpec{
			{Role: "ci", AddressOutput: "ci_ip"},
			{Role: "app", AddressOutput: "app_ip"},
		},
		Playbooks: []PlaybookSpec{
			{File: "common.yml"},
			{File: "ci.yml", Group: "ci"},
		},
		Storage: StorageSpec{
			Bucket:       "bucket",
			LockTable:    "table",
			SecretPrefix: "/stackctl/staging",
		},
	}
	cfg.applyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	t.Parallel()
	require.NoError(t, validConfig().Validate())
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing environment",
			mutate:  func(c *Config) { c.Environment = "" },
			wantErr: "environment is required",
		},
		{
			name:    "bad environment name",
			mutate:  func(c *Config) { c.Environment = "Prod_1" },
			wantErr: "lowercase alphanumeric",
		},
		{
			name:    "no targets",
			mutate:  func(c *Config) { c.Targets = nil },
			wantErr: "at least one target",
		},
		{
			name:    "duplicate role",
			mutate:  func(c *Config) { c.Targets[1].Role = "ci" },
			wantErr: "duplicate target role",
		},
		{
			name:    "missing address output",
			mutate:  func(c *Config) { c.Targets[0].AddressOutput = "" },
			wantErr: "address_output is required",
		},
		{
			name:    "unknown probe",
			mutate:  func(c *Config) { c.Targets[0].Probe = "icmp" },
			wantErr: "unknown probe kind",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Targets[0].Port = 70000 },
			wantErr: "out of range",
		},
		{
			name:    "playbook without file",
			mutate:  func(c *Config) { c.Playbooks = append(c.Playbooks, PlaybookSpec{Group: "ci"}) },
			wantErr: "file is required",
		},
		{
			name:    "playbook targets undeclared role",
			mutate:  func(c *Config) { c.Playbooks[1].Group = "db" },
			wantErr: "undeclared role",
		},
		{
			name:    "missing bucket",
			mutate:  func(c *Config) { c.Storage.Bucket = "" },
			wantErr: "storage.bucket is required",
		},
		{
			name:    "missing lock table",
			mutate:  func(c *Config) { c.Storage.LockTable = "" },
			wantErr: "storage.lock_table is required",
		},
		{
			name:    "missing secret prefix",
			mutate:  func(c *Config) { c.Storage.SecretPrefix = "" },
			wantErr: "storage.secret_prefix is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
