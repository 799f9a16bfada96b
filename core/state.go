package core

import "fmt"

// ExecutionState is the shared mutable record passed by reference through one
// graph run. Only the currently-running node mutates it and no two nodes run
// concurrently against the same state, so it carries no lock; the durable
// side-store handles the cross-process case.
//
// Invariant: AgentResults is append-only. Once a node writes its entry, later
// nodes may only read it or append new keys.
type ExecutionState struct {
	SceneID    string               `json:"scene_id"`
	SessionID  string               `json:"session_id"`
	Embeddings map[string][]float32 `json:"embeddings"`
	Metrics    map[string]float64   `json:"metrics"`

	AgentResults   map[AgentType]*AgentResponse `json:"agent_results"`
	ExecutionOrder []AgentType                  `json:"execution_order"`

	Anomaly  *AnomalyContext       `json:"anomaly_context,omitempty"`
	Enhanced *EnhancedIntelligence `json:"enhanced_intelligence,omitempty"`
}

// NewExecutionState seeds a state for one graph run from the immutable scene.
func NewExecutionState(scene *Scene, sessionID string) *ExecutionState {
	return &ExecutionState{
		SceneID:      scene.ID,
		SessionID:    sessionID,
		Embeddings:   scene.Embeddings,
		Metrics:      scene.Metrics,
		AgentResults: map[AgentType]*AgentResponse{},
	}
}

// SetAgentResult appends a completed node's normalized result and records it
// in the execution order. Overwriting an existing entry violates the
// append-only invariant and is rejected.
func (s *ExecutionState) SetAgentResult(agentType AgentType, resp *AgentResponse) error {
	if _, exists := s.AgentResults[agentType]; exists {
		return fmt.Errorf("agent result for %s already recorded", agentType)
	}
	s.AgentResults[agentType] = resp
	s.ExecutionOrder = append(s.ExecutionOrder, agentType)
	return nil
}

// AgentResult returns the recorded result for an agent type, if present.
func (s *ExecutionState) AgentResult(agentType AgentType) (*AgentResponse, bool) {
	r, ok := s.AgentResults[agentType]
	return r, ok
}

// CompletedAgents returns the agent types that have completed, in execution
// order. The slice is a copy and safe for caller mutation.
func (s *ExecutionState) CompletedAgents() []AgentType {
	out := make([]AgentType, len(s.ExecutionOrder))
	copy(out, s.ExecutionOrder)
	return out
}
