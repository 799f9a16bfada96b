package invoke

import (
	"context"
	"sync"
)

// MockInvoker is a deterministic in-memory core.AgentInvoker for tests. It
// returns canned responses per agent reference and records every call. A nil
// canned response simulates an agent that returned an empty body.
type MockInvoker struct {
	mu        sync.Mutex
	responses map[string][]byte
	errs      map[string]error
	calls     []MockCall
}

// MockCall records one Invoke call for assertions.
type MockCall struct {
	AgentRef  string
	SessionID string
	Payload   []byte
}

// NewMockInvoker constructs an empty MockInvoker.
func NewMockInvoker() *MockInvoker {
	return &MockInvoker{responses: map[string][]byte{}, errs: map[string]error{}}
}

// SetResponse registers the raw bytes returned for an agent reference.
func (m *MockInvoker) SetResponse(agentRef string, response []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[agentRef] = response
}

// SetError makes Invoke fail for the given agent reference.
func (m *MockInvoker) SetError(agentRef string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[agentRef] = err
}

// Calls returns the calls recorded so far.
func (m *MockInvoker) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Invoke implements core.AgentInvoker.
func (m *MockInvoker) Invoke(ctx context.Context, agentRef, sessionID string, payload []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{AgentRef: agentRef, SessionID: sessionID, Payload: payload})
	if err, ok := m.errs[agentRef]; ok {
		return nil, err
	}
	return m.responses[agentRef], nil
}
