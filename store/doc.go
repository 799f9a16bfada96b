// Package store provides implementations of core.ResultStore, the durable
// per-scene, per-agent-type side-channel for normalized agent results.
//
// The in-memory implementation suits tests and single-process prototypes;
// the redis subpackage provides a durable implementation shared with the
// dashboard reader.
package store
