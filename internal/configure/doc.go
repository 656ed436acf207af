// Package configure wraps the convergence tool (ansible-playbook) behind a
// narrow driver interface. Playbooks run in declared order against generated
// inventory; a failure aborts the remaining playbooks and reports which
// playbook and which targets failed with the trailing output lines.
//
// Secrets reach the tool through a transient extra-vars file created with
// restrictive permissions in a private temp directory and removed on every
// exit path, so secret values never land in argv or persisted logs.
package configure
