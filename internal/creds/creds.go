// Package creds assembles deployment secrets from layered sources with a
// defined precedence: command-line overrides, then the process environment,
// then a local secrets file, then the remote secret store. A lower-precedence
// source only fills keys that are still absent.
//
// Secret values are held in memory for the duration of one run and are never
// logged; diagnostics report key names and provenance only.
package creds

import (
	"fmt"
	"sort"
	"strings"
)

// Well-known secret keys.
const (
	KeyAWSAccessKeyID     = "aws_access_key_id"
	KeyAWSSecretAccessKey = "aws_secret_access_key"
	KeySSHKeyPath         = "ssh_key_path"
	KeyAdminPassword      = "admin_password"
	KeyRegistryToken      = "registry_token"
	KeySMTPPassword       = "smtp_password"
	KeyTrackerToken       = "tracker_token"
)

// RequiredKeys must resolve to non-empty values for a run to proceed.
func RequiredKeys() []string {
	return []string{
		KeyAWSAccessKeyID,
		KeyAWSSecretAccessKey,
		KeySSHKeyPath,
		KeyAdminPassword,
	}
}

// OptionalKeys resolve to empty with a warning when no source supplies them.
func OptionalKeys() []string {
	return []string{
		KeyRegistryToken,
		KeySMTPPassword,
		KeyTrackerToken,
	}
}

// Provenance names the source that supplied a secret value.
type Provenance string

const (
	ProvenanceOverride Provenance = "override"
	ProvenanceEnv      Provenance = "env"
	ProvenanceFile     Provenance = "file"
	ProvenanceRemote   Provenance = "remote"
)

// Entry is one resolved secret with its provenance.
type Entry struct {
	Value      string
	Provenance Provenance
}

// Credentials maps secret keys to resolved entries. The zero value is not
// usable; construct via the Resolver or NewCredentials.
type Credentials struct {
	entries map[string]Entry
}

// NewCredentials builds a credential set from pre-resolved entries.
// Intended for tests and for resumed runs.
func NewCredentials(entries map[string]Entry) *Credentials {
	copied := make(map[string]Entry, len(entries))
	for k, v := range entries {
		copied[k] = v
	}
	return &Credentials{entries: copied}
}

// Get returns a secret value and whether it was resolved non-empty.
func (c *Credentials) Get(key string) (string, bool) {
	e, ok := c.entries[key]
	return e.Value, ok && e.Value != ""
}

// Provenance reports which source supplied a key.
func (c *Credentials) Provenance(key string) (Provenance, bool) {
	e, ok := c.entries[key]
	return e.Provenance, ok
}

// Keys returns all resolved key names, sorted.
func (c *Credentials) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AWSEnv returns the cloud credential pair as KEY=VALUE environment entries
// for injection into tool subprocesses. Values are passed via the subprocess
// environment only, never via argv.
func (c *Credentials) AWSEnv() []string {
	var env []string
	if v, ok := c.Get(KeyAWSAccessKeyID); ok {
		env = append(env, "AWS_ACCESS_KEY_ID="+v)
	}
	if v, ok := c.Get(KeyAWSSecretAccessKey); ok {
		env = append(env, "AWS_SECRET_ACCESS_KEY="+v)
	}
	return env
}

// String renders key names and provenance only. Values are deliberately
// unreachable through the Stringer so accidental logging stays safe.
func (c *Credentials) String() string {
	var parts []string
	for _, k := range c.Keys() {
		parts = append(parts, fmt.Sprintf("%s(%s)", k, c.entries[k].Provenance))
	}
	return "credentials[" + strings.Join(parts, " ") + "]"
}

// ErrorKind classifies credential resolution failures.
type ErrorKind string

const (
	// KindMissing means no source supplied a required key.
	KindMissing ErrorKind = "missing"
	// KindInvalid means a source supplied a value that fails validation,
	// such as a key file path that does not exist on disk.
	KindInvalid ErrorKind = "invalid"
)

// CredentialError reports a failed resolution. It names the key, never the
// value.
type CredentialError struct {
	Kind   ErrorKind
	Key    string
	Reason string
}

func (e *CredentialError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("credential %s %s: %s", e.Key, e.Kind, e.Reason)
	}
	return fmt.Sprintf("credential %s %s", e.Key, e.Kind)
}
