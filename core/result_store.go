package core

import "context"

// ResultStore is the durable side-channel for agent-to-agent data. Nodes
// persist their normalized result keyed by (scene id, agent type) before the
// next node starts, and later nodes fall back to it when in-memory state
// propagation is lost across invocation contexts.
//
// Implementations must be safe for concurrent use; independent scene runs own
// disjoint key namespaces so there is no cross-scene contention. Short method
// names (Save/Get/List/Delete) mirror the other service interfaces.
type ResultStore interface {
	Save(ctx context.Context, sceneID string, agentType AgentType, resp *AgentResponse) error
	Get(ctx context.Context, sceneID string, agentType AgentType) (*AgentResponse, error)
	List(ctx context.Context, sceneID string) ([]AgentType, error)
	Delete(ctx context.Context, sceneID string, agentType AgentType) error
}
