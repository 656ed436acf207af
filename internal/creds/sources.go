package creds

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source supplies secret values for zero or more keys. Sources are consulted
// in precedence order; a source only fills keys no earlier source resolved.
type Source interface {
	// Provenance tags every value this source supplies.
	Provenance() Provenance

	// Fetch returns the key/value pairs this source can currently supply.
	// A source with nothing to offer returns an empty map, not an error;
	// errors are reserved for genuine lookup failures (e.g. the remote
	// store rejecting the request).
	Fetch(ctx context.Context) (map[string]string, error)
}

// OverrideSource holds explicit --secret key=value command-line overrides.
type OverrideSource struct {
	Values map[string]string
}

func (s *OverrideSource) Provenance() Provenance { return ProvenanceOverride }

func (s *OverrideSource) Fetch(context.Context) (map[string]string, error) {
	return s.Values, nil
}

// ParseOverride splits one --secret flag value into key and value.
func ParseOverride(raw string) (key, value string, err error) {
	key, value, ok := strings.Cut(raw, "=")
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid secret override %q (expected key=value)", raw)
	}
	return key, value, nil
}

// envNames maps secret keys to the environment variables consulted for them,
// in order. Conventional cloud variable names are checked before the
// STACKCTL_SECRET_* namespace.
var envNames = map[string][]string{
	KeyAWSAccessKeyID:     {"AWS_ACCESS_KEY_ID"},
	KeyAWSSecretAccessKey: {"AWS_SECRET_ACCESS_KEY"},
	KeySSHKeyPath:         {"STACKCTL_SSH_KEY_PATH"},
}

// EnvSource reads secrets from the process environment.
type EnvSource struct{}

func (s *EnvSource) Provenance() Provenance { return ProvenanceEnv }

func (s *EnvSource) Fetch(context.Context) (map[string]string, error) {
	values := make(map[string]string)
	keys := append(RequiredKeys(), OptionalKeys()...)
	for _, key := range keys {
		names := append([]string{}, envNames[key]...)
		names = append(names, "STACKCTL_SECRET_"+strings.ToUpper(key))
		for _, name := range names {
			if v := os.Getenv(name); v != "" {
				values[key] = v
				break
			}
		}
	}
	return values, nil
}

// FileSource reads a flat YAML map of secrets from a local file. A missing
// file is not an error: the file is an optional fill-in source.
type FileSource struct {
	Path string
}

func (s *FileSource) Provenance() Provenance { return ProvenanceFile }

func (s *FileSource) Fetch(context.Context) (map[string]string, error) {
	if s.Path == "" {
		return nil, nil
	}

	// #nosec G304 -- path comes from the operator's own config
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	values := make(map[string]string)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse secrets file %s: %w", s.Path, err)
	}
	return values, nil
}

// SecretReader reads all secrets below a hierarchical prefix from the remote
// secret store. Implemented by platform/aws.SSMClient.
type SecretReader interface {
	ReadSecrets(ctx context.Context, prefix string) (map[string]string, error)
}

// RemoteSource reads secrets from the remote secret store. It is the lowest
// precedence source and only ever reads; initial values are written by a
// separate setup-time process.
type RemoteSource struct {
	Reader SecretReader
	Prefix string
}

func (s *RemoteSource) Provenance() Provenance { return ProvenanceRemote }

func (s *RemoteSource) Fetch(ctx context.Context) (map[string]string, error) {
	if s.Reader == nil || s.Prefix == "" {
		return nil, nil
	}
	values, err := s.Reader.ReadSecrets(ctx, s.Prefix)
	if err != nil {
		return nil, fmt.Errorf("remote secret store: %w", err)
	}
	return values, nil
}
