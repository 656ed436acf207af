// Package config defines the configuration model for a stackctl environment.
//
// The [Config] struct is the canonical description of one deployable
// environment: where its Terraform root module lives, which playbooks
// converge it, which outputs name each target's address, how each target
// is probed for readiness, and which durable storage backs remote state
// and secrets. It is loaded from a stackctl.yaml file and validated before
// any phase runs.
package config
