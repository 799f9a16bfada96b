// Package model defines the text-generation and text-embedding service
// contracts consumed by the objective interpreter, the model-backed agent
// invoker and the cross-scene enrichment, together with deterministic mock
// implementations for tests.
//
// Provider adapters live in subpackages (anthropic, openai) so the core
// orchestration code never depends on a specific vendor SDK.
package model
