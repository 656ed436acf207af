package creds

import (
	"context"
	"fmt"
	"log"
	"os"
)

// Resolver gathers credentials from its sources in declared precedence order
// (highest first).
type Resolver struct {
	Sources []Source

	// Required overrides RequiredKeys() when non-nil (used by tests and by
	// the down path, which needs only the cloud pair).
	Required []string

	// Optional overrides OptionalKeys() when non-nil.
	Optional []string

	// Warnf receives warnings about unresolved optional keys. Defaults to
	// log.Printf.
	Warnf func(format string, v ...any)
}

// Resolve assembles credentials and validates the required set. No source
// overwrites a key an earlier source already resolved. The returned error is
// a *CredentialError for missing or invalid required secrets.
func (r *Resolver) Resolve(ctx context.Context) (*Credentials, error) {
	warnf := r.Warnf
	if warnf == nil {
		warnf = log.Printf
	}

	entries := make(map[string]Entry)
	for _, source := range r.Sources {
		values, err := source.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("credential source %s: %w", source.Provenance(), err)
		}
		for key, value := range values {
			if value == "" {
				continue
			}
			if _, resolved := entries[key]; resolved {
				continue
			}
			entries[key] = Entry{Value: value, Provenance: source.Provenance()}
		}
	}

	required := r.Required
	if required == nil {
		required = RequiredKeys()
	}
	for _, key := range required {
		entry, ok := entries[key]
		if !ok || entry.Value == "" {
			return nil, &CredentialError{Kind: KindMissing, Key: key}
		}
	}

	if entry, ok := entries[KeySSHKeyPath]; ok {
		if _, err := os.Stat(entry.Value); err != nil {
			return nil, &CredentialError{
				Kind:   KindInvalid,
				Key:    KeySSHKeyPath,
				Reason: "key file does not exist on disk",
			}
		}
	}

	optional := r.Optional
	if optional == nil {
		optional = OptionalKeys()
	}
	for _, key := range optional {
		if _, ok := entries[key]; !ok {
			warnf("credential %s not supplied by any source, continuing without it", key)
		}
	}

	return &Credentials{entries: entries}, nil
}

// DefaultSources builds the standard precedence chain: overrides > env >
// secrets file > remote store. Nil pieces are simply absent from the chain.
func DefaultSources(overrides map[string]string, secretsFile string, remote SecretReader, remotePrefix string) []Source {
	sources := []Source{
		&OverrideSource{Values: overrides},
		&EnvSource{},
		&FileSource{Path: secretsFile},
	}
	if remote != nil {
		sources = append(sources, &RemoteSource{Reader: remote, Prefix: remotePrefix})
	}
	return sources
}
