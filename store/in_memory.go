package store

import (
	"context"
	"sync"

	"github.com/drivemind-labs/sceneloop/core"
)

// InMemoryStore is a trivial in-process ResultStore implementation useful for
// tests, examples and single-process prototypes. It keeps all results in a
// nested map guarded by an RWMutex. Responses are deep-copied on save and
// retrieval to avoid accidental external mutation of internal records.
//
// Layout: sceneID -> agentType -> response
//
// This implementation is intentionally minimal; it does not enforce retention
// limits or eviction. For production, prefer a durable implementation (see
// the redis subpackage) that can survive process restarts, since the graph
// executor relies on the store when in-memory state propagation is lost
// across invocation contexts.
type InMemoryStore struct {
	mu      sync.RWMutex
	results map[string]map[core.AgentType]*core.AgentResponse
}

// NewInMemoryStore returns an empty in-memory result store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{results: make(map[string]map[core.AgentType]*core.AgentResponse)}
}

// Save stores (or overwrites) the normalized result for the given scene and
// agent type. The response is copied before storage.
func (s *InMemoryStore) Save(_ context.Context, sceneID string, agentType core.AgentType, resp *core.AgentResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[sceneID]; !exists {
		s.results[sceneID] = make(map[core.AgentType]*core.AgentResponse)
	}
	s.results[sceneID][agentType] = copyResponse(resp)
	return nil
}

// Get returns a copy of the stored result or ErrNotFound.
func (s *InMemoryStore) Get(_ context.Context, sceneID string, agentType core.AgentType) (*core.AgentResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.results[sceneID]
	if !ok {
		return nil, ErrNotFound
	}
	resp, ok := m[agentType]
	if !ok {
		return nil, ErrNotFound
	}
	return copyResponse(resp), nil
}

// List returns the agent types with a stored result for the scene. The slice
// is a snapshot and safe for caller mutation.
func (s *InMemoryStore) List(_ context.Context, sceneID string) ([]core.AgentType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.results[sceneID]
	if !ok {
		return []core.AgentType{}, nil
	}
	types := make([]core.AgentType, 0, len(m))
	for at := range m {
		types = append(types, at)
	}
	return types, nil
}

// Delete removes the result if present or returns ErrNotFound.
func (s *InMemoryStore) Delete(_ context.Context, sceneID string, agentType core.AgentType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.results[sceneID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := m[agentType]; !ok {
		return ErrNotFound
	}
	delete(m, agentType)
	return nil
}

// copyResponse deep-copies the slices of a response so stored records never
// alias caller memory.
func copyResponse(resp *core.AgentResponse) *core.AgentResponse {
	cp := *resp
	cp.Insights = append([]string(nil), resp.Insights...)
	cp.Recommendations = append([]string(nil), resp.Recommendations...)
	cp.Analysis.KeyFindings = append([]string(nil), resp.Analysis.KeyFindings...)
	cp.Validation.Issues = append([]string(nil), resp.Validation.Issues...)
	if resp.Analysis.Metrics != nil {
		cp.Analysis.Metrics = make(map[string]float64, len(resp.Analysis.Metrics))
		for k, v := range resp.Analysis.Metrics {
			cp.Analysis.Metrics[k] = v
		}
	}
	if resp.Analysis.Confidence != nil {
		c := *resp.Analysis.Confidence
		cp.Analysis.Confidence = &c
	}
	return &cp
}
