package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses the configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var rawConfig map[string]interface{}
	if err := yaml.Unmarshal(data, &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	var cfg Config
	if err := mapstructure.Decode(rawConfig, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// FindConfigFile returns the default config file path if it exists in the
// current directory.
func FindConfigFile() (string, error) {
	if _, err := os.Stat(DefaultConfigFile); err != nil {
		return "", fmt.Errorf("%s not found in current directory", DefaultConfigFile)
	}
	return DefaultConfigFile, nil
}

func (c *Config) applyDefaults() {
	if c.TerraformDir == "" {
		c.TerraformDir = "terraform"
	}
	if c.PlaybookDir == "" {
		c.PlaybookDir = "ansible"
	}
	if c.SSHUser == "" {
		c.SSHUser = "ubuntu"
	}
	if c.Storage.Region == "" {
		c.Storage.Region = "eu-west-1"
	}

	for i := range c.Targets {
		t := &c.Targets[i]
		if t.Probe == "" {
			t.Probe = ProbeSSH
		}
		if t.Port == 0 {
			switch t.Probe {
			case ProbeSSH:
				t.Port = 22
			default:
				t.Port = 80
			}
		}
		if t.Probe == ProbeHTTP && t.Path == "" {
			t.Path = "/"
		}
	}
}
