// Package probe decides when provisioned targets are ready for configuration.
//
// Each target is polled independently on a fixed interval until its probe
// succeeds or the per-target budget is exhausted. One target failing never
// stops the others; the prober reports every failure after all targets have
// settled. A configurable delay after the last target turns ready absorbs
// asynchronous boot work (cloud-init and friends) that finishes after the
// port opens.
package probe
