package core

import "context"

// AgentInvoker invokes a named remote analysis agent with a JSON payload and
// session id. The payload is a bare JSON object (no wrapper key). The
// response may be absent, a plain string, or well-formed JSON; callers must
// tolerate all three and route the raw bytes through the normalizer.
type AgentInvoker interface {
	Invoke(ctx context.Context, agentRef, sessionID string, payload []byte) ([]byte, error)
}
