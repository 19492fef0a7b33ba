// Package sinks implements progress consumers: structured logs, Prometheus,
// a live status snapshot and run bookkeeping in a store.
package sinks
