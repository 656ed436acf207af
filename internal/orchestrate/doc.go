// Package orchestrate sequences the phases of an environment run.
//
// An up run advances strictly forward through credential resolution,
// provisioning, readiness, configuration and verification; any phase failure
// is terminal for the run and names the exact command that resumes from the
// completed work. Phase records are persisted per environment so a resumed
// run can reuse recorded target addresses instead of re-invoking the
// provisioning tool.
//
// A down run destroys compute first and touches durable storage only behind
// a second, independent confirmation.
package orchestrate
