package config

import (
	"fmt"
	"regexp"
)

// environmentName keeps names safe for resource tags, file names and
// confirmation phrases.
var environmentName = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

// Validate checks the configuration for common errors and returns a detailed
// error if validation fails.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if !environmentName.MatchString(c.Environment) {
		return fmt.Errorf("environment %q must be lowercase alphanumeric with dashes", c.Environment)
	}

	if len(c.Targets) == 0 {
		return fmt.Errorf("at least one target is required")
	}

	seen := make(map[string]bool, len(c.Targets))
	for i := range c.Targets {
		if err := c.Targets[i].validate(); err != nil {
			return fmt.Errorf("target %d: %w", i, err)
		}
		if seen[c.Targets[i].Role] {
			return fmt.Errorf("duplicate target role %q", c.Targets[i].Role)
		}
		seen[c.Targets[i].Role] = true
	}

	for i, pb := range c.Playbooks {
		if pb.File == "" {
			return fmt.Errorf("playbook %d: file is required", i)
		}
		if pb.Group != "" && !seen[pb.Group] {
			return fmt.Errorf("playbook %s targets undeclared role %q", pb.File, pb.Group)
		}
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	if c.Storage.LockTable == "" {
		return fmt.Errorf("storage.lock_table is required")
	}
	if c.Storage.SecretPrefix == "" {
		return fmt.Errorf("storage.secret_prefix is required")
	}

	return nil
}

func (t *TargetSpec) validate() error {
	if t.Role == "" {
		return fmt.Errorf("role is required")
	}
	if t.AddressOutput == "" {
		return fmt.Errorf("address_output is required")
	}

	switch t.Probe {
	case ProbeTCP, ProbeHTTP, ProbeSSH:
	default:
		return fmt.Errorf("unknown probe kind %q", t.Probe)
	}

	if t.Port < 1 || t.Port > 65535 {
		return fmt.Errorf("port %d out of range", t.Port)
	}

	return nil
}
