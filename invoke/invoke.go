// Package invoke provides core.AgentInvoker implementations.
//
// ModelInvoker lets any configured model.Generator play a named analysis
// agent, which is how single-process deployments and tests run the full
// graph; production deployments typically swap in a client for a managed
// agent-invocation service behind the same interface.
package invoke

import (
	"context"
	"fmt"
	"sync"

	"github.com/drivemind-labs/sceneloop/logging"
	"github.com/drivemind-labs/sceneloop/model"
)

// Options configures a ModelInvoker.
type Options struct {
	// Logger records invocation outcomes. Defaults to NoOpLogger.
	Logger logging.Logger
}

// registration binds an agent reference to a generator and its framing prompt.
type registration struct {
	gen    model.Generator
	system string
}

// ModelInvoker implements core.AgentInvoker by routing each agent reference
// to a registered text generator with an agent-specific system prompt. The
// payload is passed through verbatim as the user message, so agents see the
// exact JSON object the graph node built.
type ModelInvoker struct {
	mu     sync.RWMutex
	agents map[string]registration
	opts   Options
}

// NewModelInvoker creates an empty invoker; register agents before use.
func NewModelInvoker(optFns ...func(o *Options)) *ModelInvoker {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &ModelInvoker{agents: map[string]registration{}, opts: opts}
}

// Register binds an agent reference to a generator and system prompt,
// replacing any previous binding.
func (m *ModelInvoker) Register(agentRef string, gen model.Generator, systemPrompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[agentRef] = registration{gen: gen, system: systemPrompt}
}

// Invoke implements core.AgentInvoker.
func (m *ModelInvoker) Invoke(ctx context.Context, agentRef, sessionID string, payload []byte) ([]byte, error) {
	m.mu.RLock()
	reg, ok := m.agents[agentRef]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("invoke: unknown agent ref %q", agentRef)
	}

	resp, err := reg.gen.Generate(ctx, model.Request{
		System: reg.system,
		User:   string(payload),
	})
	if err != nil {
		m.opts.Logger.Warn("agent invocation failed", "agent_ref", agentRef, "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("invoke %s: %w", agentRef, err)
	}
	m.opts.Logger.Debug("agent invocation completed", "agent_ref", agentRef, "session_id", sessionID, "response_bytes", len(resp.Text))
	return []byte(resp.Text), nil
}
