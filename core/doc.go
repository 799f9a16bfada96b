// Package core contains the shared data model and service contracts for the
// SceneLoop orchestration engine.
//
// It defines:
//
//   - Scene: the immutable per-scene input (embeddings, behavioral metrics)
//   - ExecutionState: the mutable shared state threaded through one graph run
//   - AgentResponse: the canonical normalized agent output
//   - AnomalyContext, CrossSceneContext: enrichment records injected into runs
//   - WorkflowParams: structured parameters derived from a business objective
//   - CycleResult / AggregatedResult: per-cycle and final outputs
//
// and the interfaces consumed by the engine for external services:
//
//   - VectorIndex: similarity search against a named vector index
//   - AgentInvoker: remote analysis agent invocation
//   - ResultStore: the durable per-scene, per-agent side-store
//
// Concrete service implementations live in sibling packages (index, invoke,
// store, model) so that core stays dependency-light and easily testable.
package core
