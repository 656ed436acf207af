// Package provision wraps the declarative infra tool (terraform) behind a
// narrow driver interface: initialize backend, compute a plan, apply it, and
// parse structured outputs into target records. Idempotence is delegated to
// the tool's own plan/apply semantics; the driver treats "no changes" as
// success and surfaces state-lock contention as a distinct error stage so
// callers can tell "someone else is deploying" from "deployment broke".
package provision
