// Package normalize turns heterogeneous raw agent output into the canonical
// core.AgentResponse record.
//
// Analysis agents return their results in several shapes: a proper JSON
// object, a JSON object whose analysis summary is itself an encoded JSON
// string (double-quoted, single-quoted literal, markdown-fenced, or nested
// escaped), or plain prose. Each shape is modeled as an explicit variant with
// one parser, selected by a single dispatch function; format probing never
// uses errors as control flow.
//
// Normalization never fails on unparseable content: the fallback chain
// bottoms out at free-text extraction and records a validation issue instead.
// The only hard failure is a schema violation: an empty or sentinel scene id,
// which would silently corrupt downstream cross-scene joins.
//
// The sanitation pass redacts fabricated-looking content (corporate tool
// URLs, internal domains, document links, ticket-id tokens) from every leaf
// string, recording one issue per pattern category matched.
package normalize
